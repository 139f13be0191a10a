package logparser

import (
	"sync"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const bytesPerMiB = 1024 * 1024

// sink is a single-writer, rotating file used for both the raw and
// readable logs. lumberjack.Logger already implements the §4.5.1
// rotation rule (rename to .1, shift existing .N up to maxFiles,
// discard the oldest) — the resolver's own sink just has to supply the
// right thresholds and serialize writes from the two stream-draining
// goroutines.
type sink struct {
	mu sync.Mutex
	lj *lumberjack.Logger
}

func newSink(path string, cfg config.LogParserConfig) *sink {
	maxSizeMiB := cfg.MaxFileSize / bytesPerMiB
	if maxSizeMiB < 1 {
		maxSizeMiB = 1
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &sink{lj: &lumberjack.Logger{
		Filename:   path,
		MaxSize:    int(maxSizeMiB),
		MaxBackups: maxFiles,
	}}
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lj.Write(p)
}

func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lj.Close()
}

func defaultLogParserConfig(cfg config.LogParserConfig) config.LogParserConfig {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * bytesPerMiB
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	return cfg
}
