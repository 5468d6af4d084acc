// Package config loads and validates spool configuration from TOML with
// sensible defaults, tilde expansion, and directory bootstrapping.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	Database string `toml:"database"`
}

// Worker contains configuration for the task execution loop.
type Worker struct {
	// PollInterval is the idle sleep between queue polls, in seconds.
	PollInterval int `toml:"poll_interval"`
	// DefaultPriority is assigned to enqueued tasks when no explicit
	// priority is given. Lower values dequeue first.
	DefaultPriority int `toml:"default_priority"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for spool.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Worker  Worker  `toml:"worker"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/spool/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("SPOOL_CONFIG"))
	}
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("spool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = ExpandPath(c.Paths.WorkDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.WorkDir, "logs")
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.WorkDir, "spool.db")
	}
	if c.Paths.Database, err = ExpandPath(c.Paths.Database); err != nil {
		return err
	}
	return nil
}

// Validate checks configuration invariants that defaults alone cannot
// guarantee once a file has been merged in.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must not be empty")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be positive, got %d", c.Worker.PollInterval)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.WorkDir, c.Paths.LogDir, filepath.Dir(c.Paths.Database)}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the queue database location.
func (c *Config) DatabasePath() string {
	return c.Paths.Database
}

// LockPath returns the location of the single-instance worker lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "spool.lock")
}

// PollInterval returns the worker idle sleep as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollInterval) * time.Second
}

// CreateSample writes the annotated sample configuration to path, refusing
// to overwrite an existing file.
func CreateSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a leading tilde and returns a cleaned absolute path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
