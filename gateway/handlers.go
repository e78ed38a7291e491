package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/gorilla/mux"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/chassis/metrics"
	"github.com/freundallein/sqsgateway/chassis/protocol"
	"github.com/freundallein/sqsgateway/chassis/queue"
	"github.com/freundallein/sqsgateway/chassis/storage"
)

const indexText = `
Available API endpoints:

GET /version                    Print the queue client library version
GET /queues                     List all queues
POST /queues                    Create a new queue
DELETE /queues/<name>           Delete a specific queue
GET /queues/<name>/msgs         Get a message, return it to the user
GET /queues/<name>/msgs/count   Return the number of messages in a queue
POST /queues/<name>/msgs        Write a new message to a queue
DELETE /queues/<name>/msgs      Get and delete a message from the queue
GET /audit                      List recent queue changes made through the gateway

`

func (g *Gateway) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, indexText)
}

func (g *Gateway) handleVersion(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK,
		fmt.Sprintf("%s version: %s\n", aws.SDKName, aws.SDKVersion),
		protocol.Version{Library: aws.SDKName, Version: aws.SDKVersion},
	)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (g *Gateway) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", protocol.ErrMalformedBody))
			return
		}
		limit = parsed
	}
	entries, err := g.repository.Recent(r.Context(), storage.ClampLimit(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (g *Gateway) handleListQueues(w http.ResponseWriter, r *http.Request) {
	client, err := g.connector.Connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	names, err := client.ListQueues(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (g *Gateway) handleCreateQueue(w http.ResponseWriter, r *http.Request) {
	var body protocol.CreateQueueRequest
	if err := protocol.Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}
	name := body.Name
	if err := queue.ValidateName(name); err != nil {
		writeError(w, r, err)
		return
	}
	client, err := g.connector.Connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = client.CreateQueue(r.Context(), name)
	g.audit(r.Context(), storage.CREATE_QUEUE, name, "", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusCreated,
		fmt.Sprintf("Queue %s has been created\n", name),
		protocol.QueueStatus{Queue: name, Status: "created"},
	)
}

func (g *Gateway) handleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	name, client, ok := g.prepare(w, r)
	if !ok {
		return
	}
	err := client.DeleteQueue(r.Context(), name)
	g.audit(r.Context(), storage.DELETE_QUEUE, name, "", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusOK,
		fmt.Sprintf("Queue %s has been removed\n", name),
		protocol.QueueStatus{Queue: name, Status: "removed"},
	)
}

func (g *Gateway) handleCountMessages(w http.ResponseWriter, r *http.Request) {
	name, client, ok := g.prepare(w, r)
	if !ok {
		return
	}
	count, err := client.CountMessages(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusOK,
		fmt.Sprintf("Queue %s has %d messages\n", name, count),
		protocol.MessageCount{Queue: name, Count: count},
	)
}

func (g *Gateway) handleWriteMessage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := queue.ValidateName(name); err != nil {
		writeError(w, r, err)
		return
	}
	var body protocol.WriteMessageRequest
	if err := protocol.Decode(r.Body, &body); err != nil {
		writeError(w, r, err)
		return
	}
	content := *body.Content
	client, err := g.connector.Connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := client.SendMessage(r.Context(), name, content)
	g.audit(r.Context(), storage.WRITE_MESSAGE, name, id, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusCreated,
		fmt.Sprintf("Message %s has been written to queue %s\n", content, name),
		protocol.WrittenMessage{Queue: name, MessageID: id, Content: content},
	)
}

func (g *Gateway) handleReadMessage(w http.ResponseWriter, r *http.Request) {
	name, client, ok := g.prepare(w, r)
	if !ok {
		return
	}
	msg, err := client.ReceiveMessage(r.Context(), name)
	if errors.Is(err, queue.ErrNoMessages) {
		renderEmpty(w, r, name)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusOK,
		fmt.Sprintf("Queue: %s. \nMessage: %s\n", name, msg.Body),
		protocol.ReceivedMessage{Queue: name, Message: &protocol.Message{ID: msg.ID, Body: msg.Body}},
	)
}

// handleConsumeMessage receives one message and deletes it. A failure between
// the two calls leaves the message to reappear after its visibility timeout.
func (g *Gateway) handleConsumeMessage(w http.ResponseWriter, r *http.Request) {
	name, client, ok := g.prepare(w, r)
	if !ok {
		return
	}
	msg, err := client.ReceiveMessage(r.Context(), name)
	if errors.Is(err, queue.ErrNoMessages) {
		renderEmpty(w, r, name)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	err = client.Acknowledge(r.Context(), msg)
	g.audit(r.Context(), storage.CONSUME_MESSAGE, name, msg.ID, err)
	if err != nil {
		log.WithFields(log.Fields{
			"event":      "ack_message_failed",
			"queue":      name,
			"message_id": msg.ID,
			"request_id": RequestID(r.Context()),
		}).Warn("message received but not deleted, it will be redelivered")
		writeError(w, r, err)
		return
	}
	render(w, r, http.StatusOK,
		fmt.Sprintf("Queue: %s \nDeleted message: %s \n", name, msg.Body),
		protocol.ReceivedMessage{Queue: name, Message: &protocol.Message{ID: msg.ID, Body: msg.Body}, Deleted: true},
	)
}

// prepare validates the queue name path variable and opens a queue client.
// It writes the error response itself and reports false on failure.
func (g *Gateway) prepare(w http.ResponseWriter, r *http.Request) (string, queue.Client, bool) {
	name := mux.Vars(r)["name"]
	if err := queue.ValidateName(name); err != nil {
		writeError(w, r, err)
		return "", nil, false
	}
	client, err := g.connector.Connect(r.Context())
	if err != nil {
		writeError(w, r, err)
		return "", nil, false
	}
	return name, client, true
}

func renderEmpty(w http.ResponseWriter, r *http.Request, name string) {
	render(w, r, http.StatusOK,
		fmt.Sprintf("No messages for queue %s\n", name),
		protocol.ReceivedMessage{Queue: name},
	)
}

// audit records the outcome of a mutating call. Journal failures never fail the request.
func (g *Gateway) audit(ctx context.Context, action storage.Action, name, messageID string, opErr error) {
	entry := storage.NewEntry(action, name, messageID, opErr)
	if err := g.repository.Record(ctx, entry); err != nil {
		metrics.AuditFailed()
		log.WithFields(log.Fields{
			"event":      "audit_failed",
			"action":     action,
			"queue":      name,
			"request_id": RequestID(ctx),
		}).Error(err)
	}
}
