package exporter

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/config"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/material"
	"github.com/mogaika/s2gltf/utils/gltfutils"
	"github.com/mogaika/s2gltf/vfs"
)

const (
	FormatPNG  = "png"
	FormatWebP = "webp"

	ExtensionTextureWebP = "EXT_texture_webp"
)

// BitmapCache decodes every source texture at most once per export.
type BitmapCache struct {
	loader vfs.Loader

	mu      sync.RWMutex
	images  map[string]image.Image
	errs    map[string]error
	decodes int
}

func NewBitmapCache(loader vfs.Loader) *BitmapCache {
	return &BitmapCache{
		loader: loader,
		images: make(map[string]image.Image),
		errs:   make(map[string]error),
	}
}

// Get returns decoded texture, nil image when it does not exist.
func (bc *BitmapCache) Get(texPath string) (image.Image, error) {
	bc.mu.RLock()
	img, ok := bc.images[texPath]
	err := bc.errs[texPath]
	bc.mu.RUnlock()
	if ok {
		return img, err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()
	if img, ok := bc.images[texPath]; ok {
		return img, bc.errs[texPath]
	}
	img, err = vfs.LoadImage(bc.loader, texPath)
	if err == nil && img == nil {
		logger.Warn("Texture not found", zap.String("texture", texPath))
	}
	bc.images[texPath] = img
	bc.errs[texPath] = err
	bc.decodes++
	return img, err
}

// Decodes returns how many textures were loaded.
func (bc *BitmapCache) Decodes() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.decodes
}

type textureBinding struct {
	material *gltf.Material
	target   string
	orm      *material.ORMRequest
}

// textureJob produces one output image. Worker goroutine fills result fields,
// bindings belong to the export goroutine.
type textureJob struct {
	id       int
	name     string
	build    func(bc *BitmapCache) (image.Image, error)
	bindings []textureBinding

	file    string
	data    []byte
	mime    string
	missing bool
	err     error
}

type textureQueue struct {
	r         *run
	pool      worker.DynamicWorkerPool
	ownsPool  bool
	bitmaps   *BitmapCache
	format    string
	satellite bool
	outDir    *vfs.DirectoryDriver

	wg     sync.WaitGroup
	jobs   []*textureJob
	byName map[string]*textureJob
}

func newPool(wc config.WorkerConfig) worker.DynamicWorkerPool {
	maxWorkers := wc.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	queueSize := wc.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	idle := time.Duration(wc.IdleSeconds) * time.Second
	if idle <= 0 {
		idle = time.Second
	}
	return worker.NewDynamicWorkerPool(maxWorkers, queueSize, idle)
}

func newTextureQueue(r *run) *textureQueue {
	pool, owned := r.pool, false
	if pool == nil {
		// Exporter built without New
		pool, owned = newPool(r.Config.Workers), true
	}

	format := r.Config.Textures.Format
	if format != FormatWebP {
		format = FormatPNG
	}
	satellite := r.Config.Textures.Satellite && !gltfutils.IsBinaryPath(r.outPath)
	if satellite {
		if err := os.MkdirAll(filepath.Dir(r.outPath), 0777); err != nil {
			logger.Warn("Failed to create texture directory", zap.Error(err))
		}
	}
	return &textureQueue{
		r:         r,
		pool:      pool,
		ownsPool:  owned,
		bitmaps:   NewBitmapCache(r.Loader),
		format:    format,
		satellite: satellite,
		outDir:    vfs.NewDirectoryDriver(filepath.Dir(r.outPath)),
		byName:    make(map[string]*textureJob),
	}
}

// submit starts job producing image name, jobs with the same name are shared.
func (q *textureQueue) submit(name string, build func(bc *BitmapCache) (image.Image, error)) *textureJob {
	if job, ok := q.byName[name]; ok {
		return job
	}
	job := &textureJob{
		id:    len(q.jobs),
		name:  name,
		build: build,
		file:  name + "." + q.format,
	}
	q.jobs = append(q.jobs, job)
	q.byName[name] = job

	q.wg.Add(1)
	q.pool.SubmitTask(worker.Task{
		ID: job.id,
		Do: func() (any, error) {
			defer q.wg.Done()
			job.err = q.process(job)
			return nil, job.err
		},
	})
	return job
}

func (q *textureQueue) process(job *textureJob) error {
	if err := cancelled(q.r.ctx); err != nil {
		return err
	}
	img, err := job.build(q.bitmaps)
	if err != nil {
		return err
	}
	if img == nil {
		job.missing = true
		return nil
	}
	if err := cancelled(q.r.ctx); err != nil {
		return err
	}

	data, mime, err := encodeImage(img, q.format)
	if err != nil {
		return errors.Wrapf(err, "Failed to encode %q", job.file)
	}
	job.mime = mime
	if q.satellite {
		if err := cancelled(q.r.ctx); err != nil {
			return err
		}
		return vfs.WriteFile(q.outDir, job.file, data)
	}
	job.data = data
	return nil
}

func encodeImage(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	if format == FormatWebP {
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil
	}
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/png", nil
}

// wait joins all jobs and binds produced textures to their materials in
// submission order.
func (q *textureQueue) wait() error {
	q.wg.Wait()
	if err := cancelled(q.r.ctx); err != nil {
		return err
	}

	for _, job := range q.jobs {
		if job.err != nil {
			if errors.Is(job.err, ErrCancelled) {
				return job.err
			}
			logger.Warn("Texture skipped", zap.String("texture", job.file), zap.Error(job.err))
			continue
		}
		if job.missing {
			logger.Warn("Texture has no source image", zap.String("texture", job.file))
			continue
		}

		index, err := q.writeTexture(job)
		if err != nil {
			return err
		}
		for _, b := range job.bindings {
			if b.orm != nil {
				material.TieORM(b.material, b.orm, index)
			} else {
				material.TieTexture(b.material, b.target, index)
			}
		}
	}
	return nil
}

// close joins jobs, cancelled ones return right away.
func (q *textureQueue) close() {
	q.wg.Wait()
	if q.ownsPool {
		q.pool.Stop()
		q.pool = nil
		q.ownsPool = false
	}
}

func (q *textureQueue) sampler() uint32 {
	doc := q.r.doc
	return q.r.cacher.GetCachedOr("sampler", func() interface{} {
		doc.Samplers = append(doc.Samplers, &gltf.Sampler{
			MagFilter: gltf.MagLinear,
			MinFilter: gltf.MinLinearMipMapLinear,
			WrapS:     gltf.WrapRepeat,
			WrapT:     gltf.WrapRepeat,
		})
		return uint32(len(doc.Samplers) - 1)
	}).(uint32)
}

func (q *textureQueue) writeTexture(job *textureJob) (uint32, error) {
	doc := q.r.doc

	var source uint32
	if q.satellite {
		doc.Images = append(doc.Images, &gltf.Image{Name: job.name, URI: job.file})
		source = uint32(len(doc.Images) - 1)
	} else {
		var err error
		source, err = modeler.WriteImage(doc, job.name, job.mime, bytes.NewReader(job.data))
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to write gltf image")
		}
		job.data = nil
	}

	tex := &gltf.Texture{Name: job.name, Sampler: gltf.Index(q.sampler())}
	if q.format == FormatWebP {
		tex.Extensions = gltf.Extensions{ExtensionTextureWebP: map[string]interface{}{"source": source}}
		material.AddExtensionUsed(doc, ExtensionTextureWebP)
		addExtensionRequired(doc, ExtensionTextureWebP)
	} else {
		tex.Source = gltf.Index(source)
	}
	doc.Textures = append(doc.Textures, tex)
	return uint32(len(doc.Textures) - 1), nil
}

func addExtensionRequired(doc *gltf.Document, ext string) {
	for _, e := range doc.ExtensionsRequired {
		if e == ext {
			return
		}
	}
	doc.ExtensionsRequired = append(doc.ExtensionsRequired, ext)
}
