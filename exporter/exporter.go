// Package exporter assembles meshes, skeletons, animations, materials and
// collision geometry of compiled resources into glTF documents.
package exporter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/config"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/material"
	"github.com/mogaika/s2gltf/phys"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/utils"
	"github.com/mogaika/s2gltf/utils/gltfutils"
	"github.com/mogaika/s2gltf/vfs"
)

var ErrCancelled = errors.New("export cancelled")

// cancelError matches both ErrCancelled and the context error it was caused by.
type cancelError struct {
	cause error
}

func (e *cancelError) Error() string        { return ErrCancelled.Error() + ": " + e.cause.Error() }
func (e *cancelError) Unwrap() error        { return e.cause }
func (e *cancelError) Is(target error) bool { return target == ErrCancelled }

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &cancelError{cause: err}
	}
	return nil
}

type ProgressFunc func(progress float32, msg string)

type Exporter struct {
	Loader   vfs.Loader
	Shaders  material.ShaderDataProvider
	Config   *config.Config
	Progress ProgressFunc

	// shared by all runs, copies of Exporter share it too
	pool worker.DynamicWorkerPool
}

func New(loader vfs.Loader, cfg *config.Config) *Exporter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Exporter{
		Loader:  loader,
		Shaders: material.NewCollectionShaderDataProvider(loader),
		Config:  cfg,
		pool:    newPool(cfg.Workers),
	}
}

// Close stops texture workers. Exporter must not be used after Close.
func (e *Exporter) Close() {
	if e.pool != nil {
		e.pool.Stop()
		e.pool = nil
	}
}

// run is state of one output document. Everything except texture jobs is
// touched only by the goroutine that started the export.
type run struct {
	*Exporter
	ctx      context.Context
	cancel   context.CancelFunc
	cacher   *gltfutils.GLTFCacher
	doc      *gltf.Document
	outPath  string
	planner  *material.Planner
	textures *textureQueue
}

// newRun starts output document state. Caller must defer close.
func (e *Exporter) newRun(ctx context.Context, outPath string) *run {
	ctx, cancel := context.WithCancel(ctx)
	cacher := gltfutils.NewCacher()
	r := &run{
		Exporter: e,
		ctx:      ctx,
		cancel:   cancel,
		cacher:   cacher,
		doc:      cacher.Doc,
		outPath:  outPath,
		planner:  material.NewPlanner(e.Shaders, e.Config.Textures.Adapt),
	}
	r.textures = newTextureQueue(r)
	return r
}

// close abandons texture jobs that are still queued and waits for the running
// ones, so nothing is written after export returns.
func (r *run) close() {
	r.cancel()
	r.textures.close()
}

func (r *run) progress(p float32, format string, a ...interface{}) {
	if r.Progress != nil {
		r.Progress(p, fmt.Sprintf(format, a...))
	}
}

// rootNode places node converting engine space into glTF space.
func (r *run) rootNode(name string) uint32 {
	return gltfutils.AddRootNode(r.doc, &gltf.Node{
		Name:   name,
		Matrix: utils.Mat4ToArray(utils.SourceToGLTF()),
	})
}

func (r *run) addChild(parent uint32, node *gltf.Node) uint32 {
	index := gltfutils.AddNode(r.doc, node)
	r.doc.Nodes[parent].Children = append(r.doc.Nodes[parent].Children, index)
	return index
}

// finish waits for texture jobs and writes the document.
func (r *run) finish() error {
	if err := r.textures.wait(); err != nil {
		return err
	}
	if err := cancelled(r.ctx); err != nil {
		return err
	}
	r.progress(1, "Writing %s", filepath.Base(r.outPath))
	if err := gltfutils.Save(r.doc, r.outPath); err != nil {
		return errors.Wrapf(err, "Failed to save %q", r.outPath)
	}
	logger.Info("Exported", zap.String("path", r.outPath),
		zap.Int("nodes", len(r.doc.Nodes)), zap.Int("meshes", len(r.doc.Meshes)),
		zap.Int("animations", len(r.doc.Animations)), zap.Int("images", len(r.doc.Images)))
	return nil
}

// Export loads compiled resource at resourcePath and exports it by its kind.
func (e *Exporter) Export(ctx context.Context, resourcePath, outPath string) error {
	res, err := e.Loader.LoadFileCompiled(resourcePath)
	if err != nil {
		return errors.Wrapf(err, "Failed to load %q", resourcePath)
	}
	if res == nil {
		return errors.Errorf("Resource %q not found", resourcePath)
	}

	switch res.Kind {
	case resource.KindModel:
		model, err := res.Model()
		if err != nil {
			return err
		}
		return e.ExportModel(ctx, model, outPath)
	case resource.KindMesh:
		mesh, err := res.Mesh()
		if err != nil {
			return err
		}
		return e.ExportMesh(ctx, mesh, outPath)
	case resource.KindPhysics:
		agg, err := res.Physics()
		if err != nil {
			return err
		}
		return e.ExportPhysics(ctx, agg, res.Name(), outPath)
	}
	return errors.Wrapf(resource.ErrWrongKind, "%q of kind %q can not be exported", resourcePath, res.Kind)
}

// ExportModel writes model meshes, skeleton and animations into outPath and
// its physics into a separate file next to it.
func (e *Exporter) ExportModel(ctx context.Context, model *resource.Model, outPath string) error {
	r := e.newRun(ctx, outPath)
	defer r.close()
	root := r.rootNode(model.Name)

	var skel *exportedSkeleton
	if model.Skeleton != nil && len(model.Skeleton.Bones) != 0 {
		var err error
		if skel, err = r.exportSkeleton(model.Name, model.Skeleton, root); err != nil {
			return err
		}
	}

	morphs, err := r.exportModelMeshes(model, root, skel)
	if err != nil {
		return err
	}

	if skel != nil && e.Config.Export.Animations {
		if err := r.exportAnimations(model, skel, morphs); err != nil {
			return err
		}
	}

	if err := r.finish(); err != nil {
		return err
	}

	if e.Config.Export.Physics && model.Physics != "" {
		return e.exportModelPhysics(ctx, model, outPath)
	}
	return nil
}

func (e *Exporter) exportModelPhysics(ctx context.Context, model *resource.Model, outPath string) error {
	res, err := e.Loader.LoadFileCompiled(model.Physics)
	if err != nil {
		return errors.Wrapf(err, "Failed to load physics %q", model.Physics)
	}
	if res == nil {
		logger.Warn("Physics not found", zap.String("model", model.Name), zap.String("physics", model.Physics))
		return nil
	}
	agg, err := res.Physics()
	if err != nil {
		return err
	}
	return e.ExportPhysics(ctx, agg, model.Name+"_physics", phys.FileName(outPath))
}

// ExportMesh writes a standalone mesh without skin.
func (e *Exporter) ExportMesh(ctx context.Context, mesh *resource.Mesh, outPath string) error {
	r := e.newRun(ctx, outPath)
	defer r.close()
	root := r.rootNode(mesh.Name)

	em, err := r.exportMesh(mesh, nil, false)
	if err != nil {
		return err
	}
	if em != nil {
		r.addChild(root, &gltf.Node{Name: mesh.Name, Mesh: gltf.Index(em.Index)})
	}
	return r.finish()
}

// ExportAnimations writes only skeleton and animations of model.
func (e *Exporter) ExportAnimations(ctx context.Context, model *resource.Model, outPath string) error {
	if model.Skeleton == nil || len(model.Skeleton.Bones) == 0 {
		return errors.Errorf("Model %q has no skeleton", model.Name)
	}
	r := e.newRun(ctx, outPath)
	defer r.close()
	root := r.rootNode(model.Name)

	skel, err := r.exportSkeleton(model.Name, model.Skeleton, root)
	if err != nil {
		return err
	}
	if err := r.exportAnimations(model, skel, nil); err != nil {
		return err
	}
	return r.finish()
}

// ExportPhysics writes triangulated collision of agg.
func (e *Exporter) ExportPhysics(ctx context.Context, agg *resource.PhysAggregate, name, outPath string) error {
	r := e.newRun(ctx, outPath)
	defer r.close()
	root := r.rootNode(name)
	if err := r.exportPhysics(agg, root); err != nil {
		return err
	}
	return r.finish()
}
