package core

import "testing"

func TestIsNoise(t *testing.T) {
	noisy := []string{
		"",
		"...",
		"50%",
		"100%",
		"⠋",
		"|",
		"─────────────",
	}
	for _, line := range noisy {
		if !IsNoise(line) {
			t.Errorf("IsNoise(%q) = false, want true", line)
		}
	}

	real := []string{
		"Running tests...",
		"build succeeded",
		"50% done with migration",
	}
	for _, line := range real {
		if IsNoise(line) {
			t.Errorf("IsNoise(%q) = true, want false", line)
		}
	}
}

func TestParsedMessage_Fields(t *testing.T) {
	msg := ParsedMessage{
		Kind:     MessageToolCallStarted,
		Content:  `{"tool":"read_file"}`,
		Metadata: map[string]interface{}{"tool": "read_file"},
	}
	if msg.Kind != MessageToolCallStarted {
		t.Errorf("Kind = %s, want %s", msg.Kind, MessageToolCallStarted)
	}
	if msg.Metadata["tool"] != "read_file" {
		t.Errorf("Metadata[tool] = %v, want read_file", msg.Metadata["tool"])
	}
}
