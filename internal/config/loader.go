package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	mu         sync.Mutex // protects concurrent access to viper operations
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "CURSORFLOW",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance,
// so CLI flags can be bound onto it before Load runs.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "CURSORFLOW",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
//  1. CLI flags (set via viper.BindPFlag before Load is called)
//  2. Environment variables (CURSORFLOW_*)
//  3. Run-scoped config file (--config, or CWD ./cursorflow.yaml)
//  4. Project config (.cursorflow/config.yaml)
//  5. User config (~/.config/cursorflow/config.yaml)
//  6. Built-in defaults
func (l *Loader) Load() (*RunConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		projectConfig := filepath.Join(".cursorflow", "config.yaml")
		if _, err := os.Stat(projectConfig); err == nil {
			l.v.SetConfigFile(projectConfig)
		} else {
			l.v.SetConfigName("cursorflow")
			l.v.SetConfigType("yaml")
			l.v.AddConfigPath(".")
			if home, err := os.UserHomeDir(); err == nil {
				l.v.AddConfigPath(filepath.Join(home, ".config", "cursorflow"))
			}
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// no config file found anywhere in the search path — defaults stand
		} else if errors.Is(err, os.ErrNotExist) {
			// explicit --config path doesn't exist — treat as "no config file"
		} else {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg RunConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	l.resolveAbsolutePaths(&cfg)

	return &cfg, nil
}

// resolveAbsolutePaths converts worktree-relative paths to absolute paths
// rooted at the current working directory, so lanes behave identically
// regardless of where cursorflow was invoked from.
func (l *Loader) resolveAbsolutePaths(cfg *RunConfig) {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	if cfg.Git.WorktreeDir != "" {
		cfg.Git.WorktreeDir = resolvePathRelativeTo(cfg.Git.WorktreeDir, cwd)
	}
	if cfg.Resolver.ResolutionWorktreeDir != "" {
		cfg.Resolver.ResolutionWorktreeDir = resolvePathRelativeTo(cfg.Resolver.ResolutionWorktreeDir, cwd)
	}
	for name, lane := range cfg.Lanes {
		if lane.WorktreeRoot != "" {
			lane.WorktreeRoot = resolvePathRelativeTo(lane.WorktreeRoot, cwd)
			cfg.Lanes[name] = lane
		}
	}
}

// resolvePathRelativeTo converts a relative path to an absolute path using
// baseDir as the base. Absolute paths (including Unix-style ones on
// Windows) are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 0 && (path[0] == '/' || path[0] == '\\') {
		return path
	}
	return filepath.Join(baseDir, path)
}

// setDefaults configures default values, mirroring defaults.go's
// DefaultConfigYAML so a run with no config file at all behaves
// identically to one scaffolded by `cursorflow init`.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("scheduler.concurrency", 3)
	l.v.SetDefault("scheduler.tick_interval", 10*time.Second)

	l.v.SetDefault("recovery.continue_threshold", 3*time.Minute)
	l.v.SetDefault("recovery.restart_threshold", 5*time.Minute)
	l.v.SetDefault("recovery.restart_bound", 2)

	l.v.SetDefault("resolver.auto_resolve", true)
	l.v.SetDefault("resolver.resolution_worktree_dir", ".cursorflow/resolution")

	l.v.SetDefault("log_parser.max_file_size", 50*1024*1024)
	l.v.SetDefault("log_parser.max_files", 5)

	l.v.SetDefault("executor.name", "claude")
	l.v.SetDefault("executor.path", "claude")

	l.v.SetDefault("git.worktree_dir", ".worktrees")
	l.v.SetDefault("git.remote", "origin")

	l.v.SetDefault("status.enabled", false)
	l.v.SetDefault("status.addr", "127.0.0.1:8765")
}
