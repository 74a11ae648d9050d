package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coffersTech/logdash/internal/pkg/failure"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{failure.New(failure.KindRead, "op", nil), http.StatusBadRequest},
		{failure.New(failure.KindBusy, "op", nil), http.StatusConflict},
		{failure.New(failure.KindTransport, "op", nil), http.StatusBadGateway},
		{failure.New(failure.KindFormat, "op", nil), http.StatusBadGateway},
		{failure.New(failure.KindTimeout, "op", nil), http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFailureBody(t *testing.T) {
	w := httptest.NewRecorder()
	Failure(w, failure.New(failure.KindTimeout, "webhook.Parse", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("code = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"error":"timeout_failure"`) || !strings.Contains(body, "took too long") {
		t.Errorf("body = %s", body)
	}
}
