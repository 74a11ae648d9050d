// Package respond writes JSON responses and maps failures to HTTP statuses.
package respond

import (
	"errors"
	"net/http"

	"github.com/op/go-logging"
	"github.com/segmentio/encoding/json"

	"github.com/coffersTech/logdash/internal/pkg/failure"
)

var log = logging.MustGetLogger("respond")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warningf("Encode response: %v", err)
	}
}

// StatusOf maps a failure kind to an HTTP status.
func StatusOf(err error) int {
	switch failure.KindOf(err) {
	case failure.KindRead:
		return http.StatusBadRequest
	case failure.KindBusy:
		return http.StatusConflict
	case failure.KindTransport, failure.KindFormat:
		return http.StatusBadGateway
	case failure.KindTimeout:
		return http.StatusGatewayTimeout
	case failure.KindClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Failure writes err as an ErrorBody with the mapped status.
func Failure(w http.ResponseWriter, err error) {
	var fe *failure.Error
	if !errors.As(err, &fe) {
		log.Errorf("Unclassified error: %v", err)
	}
	JSON(w, StatusOf(err), ErrorBody{
		Error:   failure.KindOf(err).String(),
		Message: failure.MessageOf(err),
	})
}

// BadRequest writes a 400 with a caller-supplied message.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: "bad_request", Message: msg})
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusNotFound, ErrorBody{Error: "not_found", Message: msg})
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
