package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/config"
	"github.com/mogaika/s2gltf/exporter"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/status"
	"github.com/mogaika/s2gltf/vfs"
	"github.com/mogaika/s2gltf/web"
)

func main() {
	var flags config.Flags
	var res, out string
	flags.Register(flag.CommandLine)
	flag.StringVar(&res, "res", "", "Resource to export, relative to input directory (models/hero.vmdl)")
	flag.StringVar(&out, "out", "", "Output .gltf or .glb path (default <outdir>/<name>.glb)")
	flag.Parse()

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}
	flags.Apply(cfg)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	e := exporter.New(vfs.NewDirectoryLoaderFromPath(cfg.Export.InputDir), cfg)
	defer e.Close()

	if cfg.Web.Addr != "" {
		if err := web.StartServer(cfg.Web.Addr, e, cfg.Export.OutputDir); err != nil {
			logger.Log.Fatal("Server stopped", zap.Error(err))
		}
		return
	}

	if res == "" {
		flag.PrintDefaults()
		return
	}
	if out == "" {
		out = filepath.Join(cfg.Export.OutputDir, resource.BaseName(res)+".glb")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e.Progress = func(progress float32, msg string) {
		status.Progress(progress, "%s", msg)
	}
	if err := e.Export(ctx, res, out); err != nil {
		logger.Error("Export failed", zap.String("resource", res), zap.Error(err))
		e.Close()
		logger.Sync()
		os.Exit(1)
	}
}
