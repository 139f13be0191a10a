package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates a RunConfig.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire run configuration, including converting
// it into the core.Lanes aggregate and checking cross-lane dependency
// targets.
func (v *Validator) Validate(cfg *RunConfig) error {
	v.validateLog(&cfg.Log)
	v.validateScheduler(&cfg.Scheduler)
	v.validateRecovery(&cfg.Recovery)
	v.validateLogParser(&cfg.LogParser)
	v.validateLanes(cfg)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		core.LogDebug: true, core.LogInfo: true, core.LogWarn: true, core.LogError: true,
	}
	if cfg.Level != "" && !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "invalid log level (valid: debug, info, warn, error)")
	}
	validFormats := map[string]bool{
		core.LogFormatAuto: true, core.LogFormatText: true, core.LogFormatJSON: true,
	}
	if cfg.Format != "" && !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "invalid log format (valid: auto, text, json)")
	}
}

func (v *Validator) validateScheduler(cfg *SchedulerConfig) {
	if cfg.Concurrency < 1 {
		v.addError("scheduler.concurrency", cfg.Concurrency, "concurrency must be at least 1")
	}
	if cfg.TickInterval <= 0 {
		v.addError("scheduler.tick_interval", cfg.TickInterval, "tick interval must be positive")
	}
}

func (v *Validator) validateRecovery(cfg *RecoveryConfig) {
	if cfg.ContinueThreshold <= 0 {
		v.addError("recovery.continue_threshold", cfg.ContinueThreshold, "continue threshold must be positive")
	}
	if cfg.RestartThreshold <= cfg.ContinueThreshold {
		v.addError("recovery.restart_threshold", cfg.RestartThreshold, "restart threshold must exceed continue threshold")
	}
	if cfg.RestartBound < 0 {
		v.addError("recovery.restart_bound", cfg.RestartBound, "restart bound cannot be negative")
	}
}

func (v *Validator) validateLogParser(cfg *LogParserConfig) {
	if cfg.MaxFileSize <= 0 {
		v.addError("log_parser.max_file_size", cfg.MaxFileSize, "max file size must be positive")
	}
	if cfg.MaxFiles < 1 {
		v.addError("log_parser.max_files", cfg.MaxFiles, "max files must be at least 1")
	}
}

// validateLanes converts the config-level lane map into core.Lanes and
// runs its Validate(), surfacing any DomainError as a ValidationError so
// callers get one consistent error type from this package.
func (v *Validator) validateLanes(cfg *RunConfig) {
	if len(cfg.Lanes) == 0 {
		v.addError("lanes", nil, "at least one lane must be configured")
		return
	}

	lanes, err := BuildLanes(cfg)
	if err != nil {
		v.addError("lanes", nil, err.Error())
		return
	}
	if err := lanes.Validate(); err != nil {
		v.addError("lanes", nil, err.Error())
	}
}

// BuildLanes converts the config's lane map into core.Lanes, applying
// task-level timeout defaults and the executor fallback chain
// (task -> lane -> global default).
func BuildLanes(cfg *RunConfig) (core.Lanes, error) {
	lanes := make(core.Lanes, len(cfg.Lanes))
	for name, lc := range cfg.Lanes {
		executor := lc.Executor
		if executor == "" {
			executor = cfg.Executor.Name
		}
		autoResolve := cfg.Resolver.AutoResolve
		if lc.AutoResolve != nil {
			autoResolve = *lc.AutoResolve
		}

		tasks := make([]core.Task, 0, len(lc.Tasks))
		for _, tc := range lc.Tasks {
			timeout := tc.Timeout
			if timeout == 0 {
				timeout = 30 * time.Minute
			}
			tasks = append(tasks, core.Task{
				Name:         tc.Name,
				Prompt:       tc.Prompt,
				Dependencies: tc.Dependencies,
				Model:        tc.Model,
				Timeout:      timeout,
			})
		}

		lanes[name] = &core.Lane{
			Name:           name,
			Tasks:          tasks,
			Dependencies:   lc.Dependencies,
			WorktreeRoot:   lc.WorktreeRoot,
			BaseBranch:     lc.BaseBranch,
			PipelineBranch: lc.PipelineBranch,
			AutoResolve:    autoResolve,
			ReviewMode:     lc.ReviewMode,
			OutputFormat:   lc.OutputFormat,
			Executor:       executor,
		}
	}
	return lanes, nil
}
