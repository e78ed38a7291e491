package storage

import (
	"time"

	"github.com/google/uuid"
)

// State - outcome of an audited operation
type State string

const (
	SUCCESS State = "SUCCESS"
	ERROR   State = "ERROR"
)

// Action - audited gateway operations
type Action string

const (
	CREATE_QUEUE    Action = "CREATE_QUEUE"
	DELETE_QUEUE    Action = "DELETE_QUEUE"
	WRITE_MESSAGE   Action = "WRITE_MESSAGE"
	CONSUME_MESSAGE Action = "CONSUME_MESSAGE"
)

// Entry - one audited operation
type Entry struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	Queue     string    `json:"queue"`
	MessageID string    `json:"messageId,omitempty"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	CreatedDt time.Time `json:"createdDt"`
}

// NewEntry stamps an entry with a fresh id and the current time. A non-nil
// err marks it failed.
func NewEntry(action Action, queue, messageID string, err error) *Entry {
	entry := &Entry{
		ID:        uuid.New().String(),
		Action:    action,
		Queue:     queue,
		MessageID: messageID,
		State:     SUCCESS,
		CreatedDt: time.Now().UTC(),
	}
	if err != nil {
		entry.State = ERROR
		entry.Error = err.Error()
	}
	return entry
}
