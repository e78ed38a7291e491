package gateway

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	log "github.com/freundallein/sqsgateway/chassis/logging"
)

// MediaTypeJSON selects JSON response bodies when listed in Accept.
const MediaTypeJSON = "application/vnd.sqsgateway+json"

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// wantsJSON reports whether the client opted into JSON bodies with
// ?format=json or by accepting MediaTypeJSON. A plain application/json Accept
// header gets text.
func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == MediaTypeJSON {
			return true
		}
	}
	return false
}

// render answers with text or, when the client asks for it, with payload as JSON.
func render(w http.ResponseWriter, r *http.Request, status int, text string, payload interface{}) {
	if wantsJSON(r) {
		writeJSON(w, status, payload)
		return
	}
	writeText(w, status, text)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(status)
	w.Write([]byte(text))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	bin, err := json.Marshal(payload)
	if err != nil {
		log.WithFields(log.Fields{
			"event": "response_serialize_failed",
		}).Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(append(bin, '\n'))
}
