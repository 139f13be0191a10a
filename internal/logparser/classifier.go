package logparser

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/core"
)

// classify inspects a decoded JSON record's "type" (and, where
// applicable, "subtype") field and produces exactly one ParsedMessage,
// or reports ok=false for an unrecognized type, which is dropped
// silently (§4.5, record classifier).
func classify(record map[string]interface{}, now time.Time) (core.ParsedMessage, bool) {
	kind, _ := record["type"].(string)
	switch kind {
	case "system":
		return core.ParsedMessage{
			Kind:      core.MessageSystem,
			Content:   fmt.Sprintf("system: model=%v mode=%v", stringField(record, "model"), stringField(record, "mode")),
			Timestamp: now,
		}, true

	case "user", "assistant":
		content := extractMessageContent(record)
		msgKind := core.MessageUser
		if kind == "assistant" {
			msgKind = core.MessageAssistant
		}
		return core.ParsedMessage{Kind: msgKind, Content: content, Timestamp: now}, true

	case "thinking":
		text, _ := record["text"].(string)
		return core.ParsedMessage{Kind: core.MessageThinking, Content: text, Timestamp: now}, true

	case "tool_call":
		subtype, _ := record["subtype"].(string)
		toolName := stringField(record, "tool_name")
		switch subtype {
		case "started":
			args, _ := json.Marshal(record["arguments"])
			return core.ParsedMessage{
				Kind:      core.MessageToolCallStarted,
				Content:   fmt.Sprintf("%s(%s)", toolName, string(args)),
				Timestamp: now,
				Metadata:  map[string]interface{}{"tool": toolName},
			}, true
		case "completed":
			isErr, _ := record["is_error"].(bool)
			return core.ParsedMessage{
				Kind:      core.MessageToolCallDone,
				Content:   fmt.Sprintf("%s done", toolName),
				Timestamp: now,
				Metadata:  map[string]interface{}{"tool": toolName, "is_error": isErr},
			}, true
		default:
			return core.ParsedMessage{}, false
		}

	case "result":
		duration := record["duration"]
		isErr, _ := record["is_error"].(bool)
		metadata := map[string]interface{}{"duration": duration, "is_error": isErr}
		// A result record naming the task it closes out marks a task
		// boundary the coordinator can report to the scheduler before
		// the lane's child exits (§8 scenario 3), independent of the
		// eventual process-level exit code.
		if task := stringField(record, "task"); task != "" {
			metadata["task"] = task
			if idx, ok := record["task_index"].(float64); ok {
				metadata["next_index"] = int(idx) + 1
			}
		}
		return core.ParsedMessage{
			Kind:      core.MessageResult,
			Content:   fmt.Sprintf("result (duration=%v, error=%v)", duration, isErr),
			Timestamp: now,
			Metadata:  metadata,
		}, true

	default:
		return core.ParsedMessage{}, false
	}
}

func stringField(record map[string]interface{}, key string) string {
	v, _ := record[key].(string)
	return v
}

// extractMessageContent concatenates the text items of a
// user/assistant record's message.content array, the shape the
// executor's JSON stream emits for multi-part messages.
func extractMessageContent(record map[string]interface{}) string {
	message, ok := record["message"].(map[string]interface{})
	if !ok {
		return ""
	}
	items, ok := message["content"].([]interface{})
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		part, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "")
}
