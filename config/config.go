// Package config holds exporter settings loaded from yaml or toml files and command line flags.
package config

// Config holds all exporter settings.
type Config struct {
	Export   ExportConfig  `yaml:"export" toml:"export"`
	Textures TextureConfig `yaml:"textures" toml:"textures"`
	Workers  WorkerConfig  `yaml:"workers" toml:"workers"`
	Logging  LoggingConfig `yaml:"logging" toml:"logging"`
	Web      WebConfig     `yaml:"web" toml:"web"`
}

type ExportConfig struct {
	InputDir       string `yaml:"input_dir" toml:"input_dir"`
	OutputDir      string `yaml:"output_dir" toml:"output_dir"`
	CompiledSuffix string `yaml:"compiled_suffix" toml:"compiled_suffix"`
	Animations     bool   `yaml:"animations" toml:"animations"`
	Materials      bool   `yaml:"materials" toml:"materials"`
	Physics        bool   `yaml:"physics" toml:"physics"`
	Morphs         bool   `yaml:"morphs" toml:"morphs"`

	// Skip meshes whose every draw call has one of these materials
	SkipMaterials []string `yaml:"skip_materials" toml:"skip_materials"`
}

type TextureConfig struct {
	// png or webp
	Format string `yaml:"format" toml:"format"`

	// Write images next to .gltf output instead of embedding them
	Satellite bool `yaml:"satellite" toml:"satellite"`

	// Split packed shader channels into glTF layout and build ORM textures
	Adapt bool `yaml:"adapt" toml:"adapt"`
}

type WorkerConfig struct {
	MaxWorkers  int `yaml:"max_workers" toml:"max_workers"`
	QueueSize   int `yaml:"queue_size" toml:"queue_size"`
	IdleSeconds int `yaml:"idle_seconds" toml:"idle_seconds"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

type WebConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			InputDir:       ".",
			OutputDir:      "./export",
			CompiledSuffix: "_c",
			Animations:     true,
			Materials:      true,
			Physics:        true,
			Morphs:         true,
		},
		Textures: TextureConfig{
			Format:    "png",
			Satellite: true,
			Adapt:     true,
		},
		Workers: WorkerConfig{
			MaxWorkers:  4,
			QueueSize:   64,
			IdleSeconds: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Web: WebConfig{
			Addr: ":8000",
		},
	}
}
