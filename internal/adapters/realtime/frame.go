package realtime

import (
	"encoding/json"
)

const (
	FrameJoin    = "poll.join"
	FrameLeave   = "poll.leave"
	FrameJoined  = "poll.joined"
	FrameUpdated = "poll.updated"
	FrameLeft    = "poll.left"
	FrameError   = "error"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type RoomPayload struct {
	PollID string `json:"poll_id"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func errorFrame(requestID, code, message string) Frame {
	return Frame{
		Type:      FrameError,
		RequestID: requestID,
		Payload: mustJSON(ErrorPayload{
			Code:      code,
			Message:   message,
			Retryable: code == CodeInternal,
		}),
	}
}
