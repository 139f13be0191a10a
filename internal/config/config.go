package config

import "time"

// RunConfig holds all configuration for one orchestration run: the lane
// set plus the engine-wide policy knobs the five core components read
// at startup (§3.1).
type RunConfig struct {
	Log       LogConfig             `mapstructure:"log"`
	Lanes     map[string]LaneConfig `mapstructure:"lanes"`
	Scheduler SchedulerConfig       `mapstructure:"scheduler"`
	Recovery  RecoveryConfig        `mapstructure:"recovery"`
	Resolver  ResolverConfig        `mapstructure:"resolver"`
	LogParser LogParserConfig       `mapstructure:"log_parser"`
	Executor  ExecutorConfig        `mapstructure:"executor"`
	Git       GitConfig             `mapstructure:"git"`
	Status    StatusConfig          `mapstructure:"status"`
}

// LogConfig configures the structured logger (§4.5, ambient).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LaneConfig describes one lane as read from the run config file, before
// it is validated into a core.Lane.
type LaneConfig struct {
	Tasks          []TaskConfig `mapstructure:"tasks"`
	Dependencies   []string     `mapstructure:"dependencies"`
	WorktreeRoot   string       `mapstructure:"worktree_root"`
	BaseBranch     string       `mapstructure:"base_branch"`
	PipelineBranch string       `mapstructure:"pipeline_branch"`
	AutoResolve    *bool        `mapstructure:"auto_resolve"`
	ReviewMode     bool         `mapstructure:"review_mode"`
	OutputFormat   string       `mapstructure:"output_format"`
	Executor       string       `mapstructure:"executor"`
}

// TaskConfig describes one task within a lane's config entry.
type TaskConfig struct {
	Name         string        `mapstructure:"name"`
	Prompt       string        `mapstructure:"prompt"`
	Dependencies []string      `mapstructure:"dependencies"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig configures the Dependency Scheduler (§4.2).
type SchedulerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// RecoveryConfig configures the Stall & Recovery Controller (§4.3).
type RecoveryConfig struct {
	ContinueThreshold time.Duration `mapstructure:"continue_threshold"`
	RestartThreshold  time.Duration `mapstructure:"restart_threshold"`
	RestartBound      int           `mapstructure:"restart_bound"`
}

// ResolverConfig configures the Dependency Resolver (§4.4).
type ResolverConfig struct {
	AutoResolve          bool   `mapstructure:"auto_resolve"`
	ResolutionWorktreeDir string `mapstructure:"resolution_worktree_dir"`
}

// LogParserConfig configures log rotation for the Log Parser & Multiplexer (§4.5).
type LogParserConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
	MaxFiles    int   `mapstructure:"max_files"`
}

// ExecutorConfig configures the default agent child process binary.
type ExecutorConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// GitConfig configures worktree placement (§6, external interfaces).
type GitConfig struct {
	WorktreeDir string `mapstructure:"worktree_dir"`
	Remote      string `mapstructure:"remote"`
}

// StatusConfig configures the optional read-only status surface (§6.2).
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}
