package vfs

import (
	"io"
	"os"
	path_ "path"

	"github.com/pkg/errors"
)

type DirectoryDriver struct {
	path string
}

func (dd *DirectoryDriver) Init(parent Directory) {}

func (dd *DirectoryDriver) Name() string {
	return path_.Base(dd.path)
}

func (dd *DirectoryDriver) IsDirectory() bool {
	return true
}

func (dd *DirectoryDriver) List() ([]string, error) {
	entries, err := os.ReadDir(dd.path)
	if err != nil {
		return nil, errors.Wrapf(err, "Error getting directory '%s' info", dd.path)
	}
	result := make([]string, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.Name())
	}
	return result, nil
}

func (dd *DirectoryDriver) GetElement(name string) (Element, error) {
	newPath := path_.Join(dd.path, name)
	s, err := os.Stat(newPath)
	if err != nil {
		return nil, errors.Wrapf(err, "Stat error")
	}
	var e Element
	if s.IsDir() {
		e = NewDirectoryDriver(newPath)
	} else {
		e = NewDirectoryDriverFile(newPath)
	}
	e.Init(dd)
	return e, nil
}

func (dd *DirectoryDriver) Add(e Element) error {
	path := path_.Join(dd.path, e.Name())
	if e.IsDirectory() {
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			return errors.Wrapf(err, "directory '%s' creation failure", path)
		}
		e.Init(dd)
		return nil
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return errors.Wrapf(err, "file '%s' creation failure", path)
	}
	f.Close()
	e.Init(dd)
	return nil
}

func (dd *DirectoryDriver) Path() string {
	return dd.path
}

func NewDirectoryDriver(path string) *DirectoryDriver {
	return &DirectoryDriver{path: path}
}

type DirectoryDriverFile struct {
	path string
	f    *os.File
}

func NewDirectoryDriverFile(path string) *DirectoryDriverFile {
	return &DirectoryDriverFile{
		path: path,
	}
}

func (ddf *DirectoryDriverFile) Init(parent Directory) {
	if dd, ok := parent.(*DirectoryDriver); ok {
		ddf.path = path_.Join(dd.path, path_.Base(ddf.path))
	}
}

func (ddf *DirectoryDriverFile) Name() string {
	return path_.Base(ddf.path)
}

func (ddf *DirectoryDriverFile) IsDirectory() bool {
	return false
}

func (ddf *DirectoryDriverFile) Size() int64 {
	stat, err := os.Stat(ddf.path)
	if err != nil {
		return 0
	}
	return stat.Size()
}

func (ddf *DirectoryDriverFile) Open(readonly bool) error {
	if ddf.f != nil {
		return errors.Errorf("File already opened")
	}
	flags := os.O_RDWR
	if readonly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(ddf.path, flags, 0)
	if err != nil {
		return errors.Wrapf(err, "os.Open('%s')", ddf.path)
	}
	ddf.f = f
	return nil
}

func (ddf *DirectoryDriverFile) Close() error {
	if ddf.f != nil {
		if err := ddf.f.Close(); err != nil {
			return errors.Wrapf(err, "os.File.Close()")
		}
		ddf.f = nil
	}
	return nil
}

func (ddf *DirectoryDriverFile) Reader() (*io.SectionReader, error) {
	if ddf.f == nil {
		return nil, errors.Errorf("First you need to open file")
	}
	return io.NewSectionReader(ddf.f, 0, ddf.Size()), nil
}

// Copy replaces file content with src.
func (ddf *DirectoryDriverFile) Copy(src io.Reader) error {
	ddf.Close()

	f, err := os.Create(ddf.path)
	if err != nil {
		return errors.Wrapf(err, "os.Create('%s')", ddf.path)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return errors.Wrapf(err, "io.Copy(...)")
	}
	return nil
}
