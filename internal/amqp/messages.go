package amqp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedJob marks deliveries whose envelope cannot be read. They are
// dropped without requeue.
var ErrMalformedJob = errors.New("malformed job envelope")

// JobMessage is the envelope of a projection job. Request is the same body
// the matching HTTP endpoint accepts.
type JobMessage struct {
	Kind    string          `json:"kind"`
	Request json.RawMessage `json:"request"`
}

// NewJobMessage builds a job envelope around request.
func NewJobMessage(kind string, request any) (*JobMessage, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal job request: %w", err)
	}
	return &JobMessage{Kind: kind, Request: body}, nil
}

// ToJSON converts the message to JSON bytes
func (m *JobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JobMessageFromJSON parses a job envelope. Broken JSON, a missing kind or
// a missing request all yield ErrMalformedJob.
func JobMessageFromJSON(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if strings.TrimSpace(msg.Kind) == "" {
		return nil, fmt.Errorf("%w: kind is required", ErrMalformedJob)
	}
	if len(msg.Request) == 0 || bytes.Equal(bytes.TrimSpace(msg.Request), []byte("null")) {
		return nil, fmt.Errorf("%w: request is required", ErrMalformedJob)
	}
	return &msg, nil
}

// ReplyMessage answers a job. Exactly one of Result and Error is set.
type ReplyMessage struct {
	JobID  string          `json:"jobId"`
	Kind   string          `json:"kind"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ToJSON converts the message to JSON bytes
func (m *ReplyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReplyMessageFromJSON parses a reply.
func ReplyMessageFromJSON(data []byte) (*ReplyMessage, error) {
	var msg ReplyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
