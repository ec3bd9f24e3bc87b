package config

const (
	defaultConfigPath        = "~/.config/palpack/config.toml"
	projectConfigName        = "palpack.toml"
	defaultCompression       = "none"
	defaultBuilder           = BuilderDirectory
	defaultPlaylistExtension = "m3u"
	defaultCollision         = "merge"
	defaultWorkers           = 1
	defaultSpillThresholdMiB = 32
	defaultLogLevel          = "error"
)

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Container: Container{
			Compression: defaultCompression,
		},
		Import: Import{
			Builder:           defaultBuilder,
			PlaylistExtension: defaultPlaylistExtension,
			Collision:         defaultCollision,
		},
		Write: Write{
			Workers:           defaultWorkers,
			SpillThresholdMiB: defaultSpillThresholdMiB,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
