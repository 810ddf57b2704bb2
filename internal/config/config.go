package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/decomposer/internal/stream"
)

const appName = "decomposer"

// Volume bounds accepted by the engine.
const (
	MinVolume = 0.0
	MaxVolume = 2.0
)

type Config struct {
	LibraryRoot string  `koanf:"library_root"`
	Volume      float64 `koanf:"volume"`  // linear gain, 0 to 2
	Looping     bool    `koanf:"looping"` // restart tracks at their end instead of advancing

	Audio         AudioConfig         `koanf:"audio"`
	Cache         CacheConfig         `koanf:"cache"`
	Log           LogConfig           `koanf:"log"`
	Notifications NotificationsConfig `koanf:"notifications"`
	MPRIS         bool                `koanf:"mpris"` // serve media keys over D-Bus
}

// AudioConfig holds output device settings.
type AudioConfig struct {
	SampleRate int `koanf:"sample_rate"` // output rate; files are resampled to it
	BufferMs   int `koanf:"buffer_ms"`   // device buffer length
}

// CacheConfig holds the read-ahead settings of each opened track.
type CacheConfig struct {
	Blocks         int `koanf:"blocks"`          // blocks kept for the start of the track
	BlockFrames    int `koanf:"block_frames"`    // frames per block
	PrefetchBlocks int `koanf:"prefetch_blocks"` // blocks decoded ahead of the playhead
}

// LogConfig holds log sink settings.
type LogConfig struct {
	Level string `koanf:"level"` // trace, debug, info, warn, error
	File  string `koanf:"file"`  // defaults to the XDG state dir
}

// NotificationsConfig holds desktop notification settings.
type NotificationsConfig struct {
	Enabled bool `koanf:"enabled"`
	Timeout int  `koanf:"timeout"` // ms, -1 for the server default
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		LibraryRoot: filepath.Join(xdg.UserDirs.Music, appName),
		Volume:      1.0,
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferMs:   100,
		},
		Cache: CacheConfig{
			Blocks:         stream.DefaultNumCacheBlocks,
			BlockFrames:    stream.DefaultBlockFrames,
			PrefetchBlocks: stream.DefaultPrefetchBlocks,
		},
		Log: LogConfig{Level: "info"},
		Notifications: NotificationsConfig{
			Enabled: true,
			Timeout: 5000,
		},
		MPRIS: true,
	}
}

// Load reads the config files in order of priority (last wins) on top of
// the defaults.
func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom is Load with explicit file paths. Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.LibraryRoot = expandPath(cfg.LibraryRoot)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

// Normalize replaces out-of-range values with defaults and returns a note
// for each replacement.
func (c *Config) Normalize() []string {
	var notes []string
	def := Default()

	if c.Volume < MinVolume || c.Volume > MaxVolume {
		v := min(max(c.Volume, MinVolume), MaxVolume)
		notes = append(notes, fmt.Sprintf("volume %.2f out of range, using %.2f", c.Volume, v))
		c.Volume = v
	}
	fix := func(name string, v *int, d int) {
		if *v <= 0 {
			notes = append(notes, fmt.Sprintf("%s %d invalid, using %d", name, *v, d))
			*v = d
		}
	}
	fix("audio.sample_rate", &c.Audio.SampleRate, def.Audio.SampleRate)
	fix("audio.buffer_ms", &c.Audio.BufferMs, def.Audio.BufferMs)
	fix("cache.blocks", &c.Cache.Blocks, def.Cache.Blocks)
	fix("cache.block_frames", &c.Cache.BlockFrames, def.Cache.BlockFrames)
	fix("cache.prefetch_blocks", &c.Cache.PrefetchBlocks, def.Cache.PrefetchBlocks)
	if c.LibraryRoot == "" {
		notes = append(notes, "library_root empty, using "+def.LibraryRoot)
		c.LibraryRoot = def.LibraryRoot
	}
	return notes
}

// Stream returns the options used to open each track: one cache region
// holding the start of the track, resampled to the output rate.
func (c *Config) Stream() stream.Options {
	return stream.Options{
		NumCaches:      1,
		NumCacheBlocks: c.Cache.Blocks,
		BlockFrames:    c.Cache.BlockFrames,
		PrefetchBlocks: c.Cache.PrefetchBlocks,
		OutputRate:     c.Audio.SampleRate,
	}
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/decomposer/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appName, "config.toml"))

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
