package gateway

import (
	"context"
	"errors"
	"net/http"

	log "github.com/freundallein/sqsgateway/chassis/logging"

	"github.com/freundallein/sqsgateway/chassis/keyserver"
	"github.com/freundallein/sqsgateway/chassis/protocol"
	"github.com/freundallein/sqsgateway/chassis/queue"
)

// statusClientClosedRequest is returned when the client went away mid-request.
const statusClientClosedRequest = 499

var errUnauthorized = errors.New("unauthorized")

// classify maps an error onto an HTTP status and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, protocol.ErrMalformedBody),
		errors.Is(err, protocol.ErrMissingField),
		errors.Is(err, queue.ErrInvalidName),
		errors.Is(err, queue.ErrInvalidParameter):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, queue.ErrQueueNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, queue.ErrQueueExists),
		errors.Is(err, queue.ErrQueueDeletedRecently):
		return http.StatusConflict, "conflict"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, queue.ErrUpstream),
		errors.Is(err, keyserver.ErrUnavailable),
		errors.Is(err, keyserver.ErrMalformed):
		return http.StatusBadGateway, "upstream"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	entry := log.WithFields(log.Fields{
		"event":      "request_failed",
		"code":       code,
		"status":     status,
		"request_id": RequestID(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error(err)
	} else {
		entry.Info(err)
	}
	writeJSON(w, status, protocol.ErrorResponse{Error: protocol.Error{Code: code, Message: message}})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, protocol.ErrorResponse{Error: protocol.Error{Code: "not_found", Message: "no such endpoint " + r.URL.Path}})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, protocol.ErrorResponse{Error: protocol.Error{Code: "method_not_allowed", Message: r.Method + " is not allowed on " + r.URL.Path}})
}
