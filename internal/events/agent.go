package events

// Event type constants for the agent child process's parsed stdout
// stream, bridged from core.ParsedMessage onto the bus by the
// supervisor so subscribers can watch agent activity without reading
// log files directly.
const (
	TypeAgentMessage         = "agent_message"
	TypeAgentToolCallStarted = "agent_tool_call_started"
	TypeAgentToolCallDone    = "agent_tool_call_completed"
)

// AgentMessageEvent carries one classified line of agent output
// (system/user/assistant/thinking/result/raw_line). ToolCall-kind
// messages are published as AgentToolCallEvent instead so subscribers
// can filter on tool activity without inspecting Kind.
type AgentMessageEvent struct {
	BaseEvent
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// NewAgentMessageEvent creates an agent_message event.
func NewAgentMessageEvent(runID, laneName, kind, content string) AgentMessageEvent {
	return AgentMessageEvent{
		BaseEvent: NewLaneEvent(TypeAgentMessage, CategoryAgent, runID, laneName),
		Kind:      kind,
		Content:   content,
	}
}

// AgentToolCallEvent marks a tool invocation observed in the agent's
// stdout, either as it starts or once it completes.
type AgentToolCallEvent struct {
	BaseEvent
	ToolName string `json:"toolName"`
	IsError  bool   `json:"isError,omitempty"`
}

// NewAgentToolCallStartedEvent creates an agent_tool_call_started event.
func NewAgentToolCallStartedEvent(runID, laneName, toolName string) AgentToolCallEvent {
	return AgentToolCallEvent{
		BaseEvent: NewLaneEvent(TypeAgentToolCallStarted, CategoryAgent, runID, laneName),
		ToolName:  toolName,
	}
}

// NewAgentToolCallDoneEvent creates an agent_tool_call_completed event.
func NewAgentToolCallDoneEvent(runID, laneName, toolName string, isError bool) AgentToolCallEvent {
	return AgentToolCallEvent{
		BaseEvent: NewLaneEvent(TypeAgentToolCallDone, CategoryAgent, runID, laneName),
		ToolName:  toolName,
		IsError:   isError,
	}
}
