package logparser

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/config"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

const (
	rawFileName      = "terminal-raw.log"
	readableFileName = "terminal-readable.log"
)

// Parser implements supervisor.Parser for one lane run.
type Parser struct {
	laneName string
	activity func()
	onTask   func(taskName string, nextIndex int)

	raw      *sink
	readable *sink

	mu        sync.Mutex
	carryover map[supervisor.Stream][]byte
}

// NewFactory builds a supervisor.ParserFactory backed by this package,
// writing terminal-raw.log/terminal-readable.log under the per-lane
// run directory the supervisor already creates. onTask may be nil;
// when set, it is
// invoked for every result record that names the task it closes out,
// letting the coordinator report task-level progress to the scheduler
// ahead of the lane child's eventual exit.
func NewFactory(cfg config.LogParserConfig, onTask func(laneName, taskName string, nextIndex int)) supervisor.ParserFactory {
	cfg = defaultLogParserConfig(cfg)
	return func(laneName, runDir string, activity func()) (supervisor.Parser, error) {
		p := &Parser{
			laneName:  laneName,
			activity:  activity,
			raw:       newSink(filepath.Join(runDir, rawFileName), cfg),
			readable:  newSink(filepath.Join(runDir, readableFileName), cfg),
			carryover: make(map[supervisor.Stream][]byte),
		}
		if onTask != nil {
			p.onTask = func(taskName string, nextIndex int) { onTask(laneName, taskName, nextIndex) }
		}
		return p, nil
	}
}

// Feed implements supervisor.Parser.
func (p *Parser) Feed(stream supervisor.Stream, chunk []byte) error {
	if _, err := p.raw.Write(chunk); err != nil {
		return fmt.Errorf("writing raw sink: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	buf := append(p.carryover[stream], chunk...)
	lines := strings.Split(string(buf), "\n")
	p.carryover[stream] = []byte(lines[len(lines)-1])

	for _, line := range lines[:len(lines)-1] {
		p.processLine(strings.TrimSuffix(line, "\r"))
	}
	return nil
}

// Flush implements supervisor.Parser: any trailing partial line in
// either stream's carryover is processed as a final line.
func (p *Parser) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for stream, buf := range p.carryover {
		if len(buf) > 0 {
			p.processLine(strings.TrimSuffix(string(buf), "\r"))
		}
		p.carryover[stream] = nil
	}
	return nil
}

// Close implements supervisor.Parser: writes a session footer and
// releases both sinks' file handles.
func (p *Parser) Close() error {
	footer := fmt.Sprintf("%s [%s] session ended\n", time.Now().Format(time.RFC3339), p.laneName)
	_, _ = p.readable.Write([]byte(footer))

	rawErr := p.raw.Close()
	readableErr := p.readable.Close()
	if rawErr != nil {
		return rawErr
	}
	return readableErr
}

// processLine classifies one complete line (already relieved of its
// trailing newline) and, for every emitted message or non-noise plain
// line, writes a readable-sink entry and pokes the activity callback.
// Must be called with p.mu held.
func (p *Parser) processLine(line string) {
	stripped := ansi.Strip(line)
	trimmed := strings.TrimSpace(stripped)

	if strings.HasPrefix(trimmed, "{") {
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &record); err == nil {
			if msg, ok := classify(record, time.Now()); ok {
				p.writeMessage(msg)
				return
			}
			// Unknown type: ignored per the record classifier.
			return
		}
	}

	if core.IsNoise(trimmed) {
		return
	}
	p.writeMessage(core.ParsedMessage{Kind: core.MessageRawLine, Content: trimmed, Timestamp: time.Now()})
}

func (p *Parser) writeMessage(msg core.ParsedMessage) {
	entry := fmt.Sprintf("%s [%s] %s %s\n", msg.Timestamp.Format("15:04:05"), p.laneName, msg.Kind, msg.Content)
	if _, err := p.readable.Write([]byte(entry)); err != nil {
		return
	}
	if p.activity != nil {
		p.activity()
	}
	if p.onTask != nil && msg.Kind == core.MessageResult {
		if task, ok := msg.Metadata["task"].(string); ok {
			nextIndex, _ := msg.Metadata["next_index"].(int)
			p.onTask(task, nextIndex)
		}
	}
}
