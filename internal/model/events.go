package model

// SSE 事件词汇表。中继把上游 SDK 的事件流改写为这组事件，
// 客户端状态机只依赖这组事件，与上游事件形状解耦。
type EventType string

const (
	EventStart    EventType = "start"
	EventStatus   EventType = "status"
	EventDelta    EventType = "delta"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

type StartPayload struct {
	ThreadID string `json:"threadId"`
}

type StatusPayload struct {
	Status string `json:"status"`
}

type DeltaPayload struct {
	Text string `json:"text"`
}

type CompletePayload struct {
	FullText string `json:"fullText"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// StreamEvent 按 Type 打标的载荷变体，每个变体只设置自己的指针字段，
// 避免"字段可能缺失"的歧义
type StreamEvent struct {
	Type     EventType
	Start    *StartPayload
	Status   *StatusPayload
	Delta    *DeltaPayload
	Complete *CompletePayload
	Error    *ErrorPayload
}

func StartEvent(threadID string) StreamEvent {
	return StreamEvent{Type: EventStart, Start: &StartPayload{ThreadID: threadID}}
}

func StatusEvent(status string) StreamEvent {
	return StreamEvent{Type: EventStatus, Status: &StatusPayload{Status: status}}
}

func DeltaEvent(text string) StreamEvent {
	return StreamEvent{Type: EventDelta, Delta: &DeltaPayload{Text: text}}
}

func CompleteEvent(fullText string) StreamEvent {
	return StreamEvent{Type: EventComplete, Complete: &CompletePayload{FullText: fullText}}
}

func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Type: EventError, Error: &ErrorPayload{Error: msg}}
}

func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// Payload 返回当前变体的载荷，done 事件的载荷是空对象 {}
func (e StreamEvent) Payload() interface{} {
	switch e.Type {
	case EventStart:
		return e.Start
	case EventStatus:
		return e.Status
	case EventDelta:
		return e.Delta
	case EventComplete:
		return e.Complete
	case EventError:
		return e.Error
	default:
		return struct{}{}
	}
}
