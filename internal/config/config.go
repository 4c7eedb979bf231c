package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the trimmer. Priority: flags > env > file > defaults.
type Config struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	FFplayPath  string `yaml:"ffplay_path"`

	// PreviewWindow mirrors the playhead in an ffplay window in the ui command.
	PreviewWindow bool `yaml:"preview_window"`

	// DownloadDir receives exported clips. Empty means the current directory.
	DownloadDir string `yaml:"download_dir"`
	// WorkDir is the parent of the engine's scratch filesystem. Empty means os.TempDir.
	WorkDir string `yaml:"work_dir"`

	PollInterval time.Duration `yaml:"poll_interval"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"` // ui only; the screen owns stdout/stderr

	Server ServerConfig `yaml:"server"`
}

type ServerConfig struct {
	Listen          string `yaml:"listen"`
	MaxUploadMB     int64  `yaml:"max_upload_mb"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		FFplayPath:   "ffplay",
		PollInterval: 100 * time.Millisecond,
		LogLevel:     "info",
		Server: ServerConfig{
			Listen:          ":8080",
			MaxUploadMB:     2048,
			RateLimitPerMin: 30,
		},
	}
}

// LoadFile loads configuration from a YAML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// FindFile searches the standard locations and returns "" when none exists.
func FindFile() string {
	locations := []string{
		"./mp4trim.yaml",
		"./mp4trim.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".mp4trim", "config.yaml"),
			filepath.Join(home, ".mp4trim", "config.yml"),
		)
	}

	for _, path := range locations {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load resolves the config file (explicit path first, then FindFile) and
// applies the environment on top.
func Load(explicitPath string, getenv func(string) string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = FindFile()
	}

	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.FFmpegPath, "MP4TRIM_FFMPEG_PATH", "FFMPEG_PATH")
	setString(&c.FFprobePath, "MP4TRIM_FFPROBE_PATH", "FFPROBE_PATH")
	setString(&c.FFplayPath, "MP4TRIM_FFPLAY_PATH", "FFPLAY_PATH")
	setString(&c.DownloadDir, "MP4TRIM_DOWNLOAD_DIR")
	setString(&c.WorkDir, "MP4TRIM_WORK_DIR")
	setString(&c.LogLevel, "MP4TRIM_LOG_LEVEL", "LOG_LEVEL")
	setString(&c.LogFile, "MP4TRIM_LOG_FILE")
	setString(&c.Server.Listen, "MP4TRIM_LISTEN")

	if v := strings.TrimSpace(getenv("MP4TRIM_PREVIEW_WINDOW")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MP4TRIM_PREVIEW_WINDOW: %w", err)
		}
		c.PreviewWindow = b
	}
	if v := strings.TrimSpace(getenv("MP4TRIM_POLL_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MP4TRIM_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := strings.TrimSpace(getenv("MP4TRIM_MAX_UPLOAD_MB")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MP4TRIM_MAX_UPLOAD_MB: %w", err)
		}
		c.Server.MaxUploadMB = n
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.FFmpegPath) == "" {
		return errors.New("ffmpeg path is empty")
	}
	if strings.TrimSpace(c.FFprobePath) == "" {
		return errors.New("ffprobe path is empty")
	}
	if c.PreviewWindow && strings.TrimSpace(c.FFplayPath) == "" {
		return errors.New("preview window needs an ffplay path")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be > 0")
	}
	// a missing download dir is created on the first save
	if c.DownloadDir != "" {
		info, err := os.Stat(c.DownloadDir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("stat download dir: %w", err)
		case !info.IsDir():
			return fmt.Errorf("download dir %s is not a directory", c.DownloadDir)
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload must be > 0")
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("rate limit must be >= 0")
	}
	return nil
}
