package config

import "flag"

// Flags are command line overrides. Zero values leave the loaded config untouched.
type Flags struct {
	ConfigPath string
	InputDir   string
	OutputDir  string
	LogLevel   string
	LogFile    string
	WebAddr    string
	Workers    int
	WebP       bool
	Embed      bool
	NoAnim     bool
	NoPhysics  bool
	NoMaterial bool
	NoAdapt    bool
}

func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to yaml or toml config file")
	fs.StringVar(&f.InputDir, "in", "", "Directory with compiled resources")
	fs.StringVar(&f.OutputDir, "outdir", "", "Output directory")
	fs.StringVar(&f.LogLevel, "loglevel", "", "debug, info, warn or error")
	fs.StringVar(&f.LogFile, "logfile", "", "Rotating log file path")
	fs.StringVar(&f.WebAddr, "web", "", "Serve http api on this address instead of exporting")
	fs.IntVar(&f.Workers, "workers", 0, "Texture worker count")
	fs.BoolVar(&f.WebP, "webp", false, "Write textures as webp")
	fs.BoolVar(&f.Embed, "embed", false, "Embed images into .gltf buffers")
	fs.BoolVar(&f.NoAnim, "noanim", false, "Do not export animations")
	fs.BoolVar(&f.NoPhysics, "nophysics", false, "Do not export physics")
	fs.BoolVar(&f.NoMaterial, "nomaterial", false, "Do not export materials")
	fs.BoolVar(&f.NoAdapt, "noadapt", false, "Export textures as is, without channel remapping")
}

func (f *Flags) Apply(cfg *Config) {
	if f.InputDir != "" {
		cfg.Export.InputDir = f.InputDir
	}
	if f.OutputDir != "" {
		cfg.Export.OutputDir = f.OutputDir
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.WebAddr != "" {
		cfg.Web.Addr = f.WebAddr
	}
	if f.Workers > 0 {
		cfg.Workers.MaxWorkers = f.Workers
	}
	if f.WebP {
		cfg.Textures.Format = "webp"
	}
	if f.Embed {
		cfg.Textures.Satellite = false
	}
	if f.NoAnim {
		cfg.Export.Animations = false
	}
	if f.NoPhysics {
		cfg.Export.Physics = false
	}
	if f.NoMaterial {
		cfg.Export.Materials = false
	}
	if f.NoAdapt {
		cfg.Textures.Adapt = false
	}
}
