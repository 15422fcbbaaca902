package vfs

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func OpenFileAndGetReader(f File, readonly bool) (*io.SectionReader, error) {
	if err := f.Open(readonly); err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	r, err := f.Reader()
	if err != nil {
		defer f.Close()
		return nil, errors.Wrapf(err, "Cannot get file '%s' reader", f.Name())
	}
	return r, nil
}

func OpenFileAndCopy(f File, src io.Reader) error {
	if err := f.Open(false); err != nil {
		return errors.Wrapf(err, "Cannot open file '%s'", f.Name())
	}
	defer f.Close()
	if err := f.Copy(src); err != nil {
		return errors.Wrapf(err, "Cannot copy data to file '%s'", f.Name())
	}
	return nil
}

func DirectoryGetFile(d Directory, name string) (File, error) {
	e, err := d.GetElement(name)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open file '%s'", name)
	}
	if e.IsDirectory() {
		return nil, errors.Errorf("File '%s' is directory, not a file!", name)
	}
	return e.(File), nil
}

// IsNotExist reports whether err was caused by missing element.
func IsNotExist(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}

// ReadFile reads whole file at slash separated path relative to d.
func ReadFile(d Directory, path string) ([]byte, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, dir := range parts[:len(parts)-1] {
		e, err := d.GetElement(dir)
		if err != nil {
			return nil, err
		}
		sub, ok := e.(Directory)
		if !ok {
			return nil, errors.Errorf("'%s' is not a directory", dir)
		}
		d = sub
	}

	f, err := DirectoryGetFile(d, parts[len(parts)-1])
	if err != nil {
		return nil, err
	}
	r, err := OpenFileAndGetReader(f, true)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, r.Size())
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "Cannot read file '%s'", path)
	}
	return data, nil
}

// WriteFile creates or replaces file name in d.
func WriteFile(d Directory, name string, data []byte) error {
	f := NewDirectoryDriverFile(name)
	if err := d.Add(f); err != nil {
		return err
	}
	return OpenFileAndCopy(f, bytes.NewReader(data))
}
