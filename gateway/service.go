// Package gateway exposes queue service operations over HTTP. Every queue
// request opens its own connection through a queue.Connector; the gateway
// keeps no queue state between requests.
package gateway

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freundallein/sqsgateway/chassis/metrics"
	"github.com/freundallein/sqsgateway/chassis/queue"
	"github.com/freundallein/sqsgateway/chassis/storage"
)

// Config ...
type Config struct {
	Connector  queue.Connector
	Repository storage.AuditRepository
	// AuthSecret enables bearer token checks on mutating routes when set.
	AuthSecret string
}

// Gateway ...
type Gateway struct {
	connector  queue.Connector
	repository storage.AuditRepository
	authSecret []byte
	router     *mux.Router
}

// New builds the gateway and its routes.
func New(cfg *Config) *Gateway {
	repo := cfg.Repository
	if repo == nil {
		repo = storage.NopRepository{}
	}
	g := &Gateway{
		connector:  cfg.Connector,
		repository: repo,
		router:     mux.NewRouter(),
	}
	if cfg.AuthSecret != "" {
		g.authSecret = []byte(cfg.AuthSecret)
	}
	g.setupRoutes()
	return g
}

// ServeHTTP ...
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) setupRoutes() {
	r := g.router
	r.Use(requestID, accessLog, recovery)
	// mux runs middleware for matched routes only
	r.NotFoundHandler = requestID(accessLog(http.HandlerFunc(handleNotFound)))
	r.MethodNotAllowedHandler = requestID(accessLog(http.HandlerFunc(handleMethodNotAllowed)))

	r.HandleFunc("/", g.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/version", g.handleVersion).Methods(http.MethodGet)
	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/audit", g.handleAudit).Methods(http.MethodGet)

	r.HandleFunc("/queues", g.handleListQueues).Methods(http.MethodGet)
	r.Handle("/queues", g.authorize(g.handleCreateQueue)).Methods(http.MethodPost)
	r.Handle("/queues/{name}", g.authorize(g.handleDeleteQueue)).Methods(http.MethodDelete)
	r.HandleFunc("/queues/{name}/msgs/count", g.handleCountMessages).Methods(http.MethodGet)
	r.HandleFunc("/queues/{name}/msgs", g.handleReadMessage).Methods(http.MethodGet)
	r.Handle("/queues/{name}/msgs", g.authorize(g.handleWriteMessage)).Methods(http.MethodPost)
	r.Handle("/queues/{name}/msgs", g.authorize(g.handleConsumeMessage)).Methods(http.MethodDelete)
}
