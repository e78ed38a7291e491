package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxBodySize = 256 << 10

var (
	// ErrMalformedBody ...
	ErrMalformedBody = errors.New("malformed request body")
	// ErrMissingField ...
	ErrMissingField = errors.New("missing required field")
)

// CreateQueueRequest - body of POST /queues
type CreateQueueRequest struct {
	Name string `json:"name"`
}

// Validate ...
func (r *CreateQueueRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	return nil
}

// WriteMessageRequest - body of POST /queues/{name}/msgs
type WriteMessageRequest struct {
	Content *string `json:"content"`
}

// Validate rejects an absent or empty content.
func (r *WriteMessageRequest) Validate() error {
	if r.Content == nil || *r.Content == "" {
		return fmt.Errorf("%w: content", ErrMissingField)
	}
	return nil
}

// Validator ...
type Validator interface {
	Validate() error
}

// Decode reads one JSON document from body into v and validates it.
// The Content-Type header is not checked, any body is parsed as JSON.
func Decode(body io.Reader, v Validator) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodySize))
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return v.Validate()
}

// Message - JSON presentation of a received message
type Message struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// QueueStatus - JSON answer for queue lifecycle calls
type QueueStatus struct {
	Queue  string `json:"queue"`
	Status string `json:"status"`
}

// MessageCount ...
type MessageCount struct {
	Queue string `json:"queue"`
	Count int64  `json:"count"`
}

// WrittenMessage ...
type WrittenMessage struct {
	Queue     string `json:"queue"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// ReceivedMessage carries a nil Message for an empty queue.
type ReceivedMessage struct {
	Queue   string   `json:"queue"`
	Message *Message `json:"message"`
	Deleted bool     `json:"deleted,omitempty"`
}

// Version ...
type Version struct {
	Library string `json:"library"`
	Version string `json:"version"`
}

// Error - error payload, shaped like the JSON-RPC error object
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse ...
type ErrorResponse struct {
	Error Error `json:"error"`
}
