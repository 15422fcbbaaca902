package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Export.CompiledSuffix != "_c" {
		t.Errorf("expected compiled suffix _c, got %q", cfg.Export.CompiledSuffix)
	}
	if !cfg.Export.Animations || !cfg.Export.Physics || !cfg.Export.Materials {
		t.Error("expected animations, physics and materials enabled by default")
	}
	if cfg.Textures.Format != "png" {
		t.Errorf("expected png textures, got %q", cfg.Textures.Format)
	}
	if cfg.Workers.MaxWorkers <= 0 {
		t.Errorf("expected positive worker count, got %d", cfg.Workers.MaxWorkers)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2gltf.yaml")
	data := []byte("export:\n  physics: false\ntextures:\n  format: webp\nworkers:\n  max_workers: 9\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export.Physics {
		t.Error("expected physics disabled from file")
	}
	if !cfg.Export.Animations {
		t.Error("expected animations to keep default")
	}
	if cfg.Textures.Format != "webp" {
		t.Errorf("expected webp, got %q", cfg.Textures.Format)
	}
	if cfg.Workers.MaxWorkers != 9 {
		t.Errorf("expected 9 workers, got %d", cfg.Workers.MaxWorkers)
	}
}

func TestLoadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2gltf.toml")
	data := []byte("[logging]\nlevel = \"debug\"\n\n[web]\naddr = \":9000\"\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Logging.Level)
	}
	if cfg.Web.Addr != ":9000" {
		t.Errorf("expected :9000, got %q", cfg.Web.Addr)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2gltf.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for .ini config")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "s2gltf.yaml")
	cfg := Default()
	cfg.Export.SkipMaterials = []string{"materials/dev/black.vmat"}
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Export.SkipMaterials) != 1 || loaded.Export.SkipMaterials[0] != "materials/dev/black.vmat" {
		t.Errorf("skip materials not preserved: %v", loaded.Export.SkipMaterials)
	}
}

func TestFlagsApply(t *testing.T) {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.Register(fs)
	if err := fs.Parse([]string{"-webp", "-nophysics", "-workers", "2", "-loglevel", "warn"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	f.Apply(cfg)
	if cfg.Textures.Format != "webp" {
		t.Errorf("expected webp, got %q", cfg.Textures.Format)
	}
	if cfg.Export.Physics {
		t.Error("expected physics disabled")
	}
	if cfg.Workers.MaxWorkers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Workers.MaxWorkers)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Logging.Level)
	}
	if !cfg.Textures.Satellite {
		t.Error("expected satellite images to keep default")
	}
}
