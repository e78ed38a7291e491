package queue

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	fifoSuffix    = ".fifo"
	maxNameLength = 80
)

var (
	// ErrQueueNotFound ...
	ErrQueueNotFound = errors.New("queue does not exist")
	// ErrQueueExists is returned when a queue with the same name but different attributes exists.
	ErrQueueExists = errors.New("queue already exists with different attributes")
	// ErrQueueDeletedRecently is returned when a queue name is reused within 60s of its deletion.
	ErrQueueDeletedRecently = errors.New("queue was deleted recently")
	// ErrInvalidName ...
	ErrInvalidName = errors.New("invalid queue name")
	// ErrInvalidParameter is returned when the queue service rejects a parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNoMessages is returned by ReceiveMessage on an empty queue.
	ErrNoMessages = errors.New("no message received")
	// ErrUpstream marks failures of the queue service or of obtaining credentials for it.
	ErrUpstream = errors.New("queue service failure")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config - unified configuration for queue service
type Config struct {
	Region   string
	Endpoint string

	// AWS shared credentials, used when no key source is configured.
	CredentialsFile    string
	CredentialsProfile string
	Retries            int

	VisibilityTimeout int
	ReadWaitSeconds   int
}

// RecvMessage unified presentation for queue message
type RecvMessage struct {
	ID       string
	Body     string
	Handler  string
	QueueURL string
}

// Client interface for queue interaction (SQS Based)
type Client interface {
	ListQueues(ctx context.Context) ([]string, error)
	CreateQueue(ctx context.Context, name string) error
	DeleteQueue(ctx context.Context, name string) error
	CountMessages(ctx context.Context, name string) (int64, error)
	SendMessage(ctx context.Context, name string, body string) (string, error)
	ReceiveMessage(ctx context.Context, name string) (*RecvMessage, error)
	Acknowledge(ctx context.Context, message *RecvMessage) error
}

// Connector opens a Client for a single request.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
}

// IsFIFO reports whether name addresses a FIFO queue.
func IsFIFO(name string) bool {
	return strings.HasSuffix(name, fifoSuffix)
}

// ValidateName checks name against the queue service naming rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidName, name, maxNameLength)
	}
	base := strings.TrimSuffix(name, fifoSuffix)
	if !namePattern.MatchString(base) {
		return fmt.Errorf("%w: %q may only contain alphanumerics, hyphens and underscores", ErrInvalidName, name)
	}
	return nil
}
