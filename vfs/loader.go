package vfs

import (
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/kv"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
)

// Loader resolves resource references. A missing file yields nil resource and nil error.
type Loader interface {
	LoadFile(path string) (*resource.Resource, error)
	LoadFileCompiled(path string) (*resource.Resource, error)
	LoadShader(name string) (*resource.ShaderCollection, error)
}

// ShaderDirectory is where compiled shader collections are looked up.
const ShaderDirectory = "shaders"

// DirectoryLoader reads resources from a directory tree. Calls are serialized,
// loaded resources are cached by path.
type DirectoryLoader struct {
	root Directory

	mu      sync.Mutex
	files   map[string]*resource.Resource
	shaders map[string]*resource.ShaderCollection
}

func NewDirectoryLoader(root Directory) *DirectoryLoader {
	return &DirectoryLoader{
		root:    root,
		files:   make(map[string]*resource.Resource),
		shaders: make(map[string]*resource.ShaderCollection),
	}
}

func NewDirectoryLoaderFromPath(dir string) *DirectoryLoader {
	return NewDirectoryLoader(NewDirectoryDriver(dir))
}

// CleanPath normalizes resource reference to slash separated relative path.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (dl *DirectoryLoader) LoadFile(p string) (*resource.Resource, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.loadFile(p)
}

func (dl *DirectoryLoader) loadFile(p string) (*resource.Resource, error) {
	key := CleanPath(p)
	if r, ok := dl.files[key]; ok {
		return r, nil
	}

	data, err := ReadFile(dl.root, key)
	if err != nil {
		if IsNotExist(err) {
			logger.Debug("Resource not found", zap.String("path", p))
			dl.files[key] = nil
			return nil, nil
		}
		return nil, errors.Wrapf(err, "Failed to read %q", p)
	}

	r := &resource.Resource{Path: key, Kind: resource.KindFromPath(key)}
	if r.Kind == resource.KindTexture {
		r.Raw = data
	} else {
		if r.Data, err = kv.Parse(data); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse %q", p)
		}
	}
	dl.files[key] = r
	return r, nil
}

// LoadFileCompiled loads compiled form of p, appending compiled suffix when missing.
func (dl *DirectoryLoader) LoadFileCompiled(p string) (*resource.Resource, error) {
	if !strings.HasSuffix(p, resource.CompiledSuffix) {
		p += resource.CompiledSuffix
	}
	return dl.LoadFile(p)
}

func (dl *DirectoryLoader) LoadShader(name string) (*resource.ShaderCollection, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	key := CleanPath(name)
	if sc, ok := dl.shaders[key]; ok {
		return sc, nil
	}

	candidates := []string{path.Join(ShaderDirectory, key) + resource.CompiledSuffix, key + resource.CompiledSuffix}
	for _, c := range candidates {
		r, err := dl.loadFile(c)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		sc, err := r.ShaderCollection()
		if err != nil {
			return nil, err
		}
		dl.shaders[key] = sc
		return sc, nil
	}
	dl.shaders[key] = nil
	return nil, nil
}
