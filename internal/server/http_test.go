package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
	"golang.org/x/crypto/bcrypt"

	"github.com/coffersTech/logdash/internal/controller"
	"github.com/coffersTech/logdash/internal/engine"
	"github.com/coffersTech/logdash/internal/pkg/respond"
	"github.com/coffersTech/logdash/internal/session"
	"github.com/coffersTech/logdash/internal/webhook"
)

const parsed = `{"data":[
	{"date":"2025-08-21","time":"14:01:33.511","log_level":"ERROR","message":"db down"},
	{"date":"2025-08-21","time":"14:02:10.000","log_level":"INFO","message":"request served"},
	{"date":"2025-08-21","time":"14:02:11.000","log_level":"WARN","message":"slow db"}
]}`

type fixture struct {
	handler http.Handler
	store   *engine.Store
	webhook *httptest.Server
}

func newFixture(t *testing.T, opts Options, parserStatus int) *fixture {
	t.Helper()
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(parserStatus)
		io.WriteString(w, parsed)
	}))
	t.Cleanup(hook.Close)

	store := engine.NewStore()
	ctrl := controller.New(store, webhook.New(webhook.Options{URL: hook.URL}), controller.Options{})
	sessions := session.NewServer(session.NewStore(), store)
	srv := New(store, ctrl, sessions, nil, opts)
	return &fixture{handler: srv.Handler(), store: store, webhook: hook}
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestUploadAndQuery(t *testing.T) {
	f := newFixture(t, Options{}, http.StatusOK)

	w := serve(f.handler, uploadRequest(t, "app.log", "raw text"))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", w.Code, w.Body)
	}
	var res controller.Result
	decode(t, w, &res)
	if res.Records != 3 || res.Source != "app.log" {
		t.Errorf("result = %+v", res)
	}

	w = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/logs?search=DB&sort=desc&page_size=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("logs: status %d: %s", w.Code, w.Body)
	}
	var logs logsResponse
	decode(t, w, &logs)
	if logs.TotalFiltered != 2 || logs.Visible[0].Message != "db down" || logs.State.PageSize != 10 {
		t.Errorf("logs = %+v", logs)
	}

	w = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats statsResponse
	decode(t, w, &stats)
	if stats.Total != 3 || stats.SystemHealth != 67 || stats.BatchID == "" {
		t.Errorf("stats = %+v", stats)
	}

	w = serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/charts?granularity=minute", nil))
	var charts engine.Charts
	decode(t, w, &charts)
	if len(charts.Trend.Labels) != 2 || charts.Trend.Placeholder {
		t.Errorf("trend labels = %v", charts.Trend.Labels)
	}
}

func TestLogsBadParams(t *testing.T) {
	f := newFixture(t, Options{}, http.StatusOK)
	for _, q := range []string{"page_size=7", "sort=up", "page=x", "q=(level:ERROR"} {
		w := serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/logs?"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, w.Code)
		}
	}
}

func TestUploadFailures(t *testing.T) {
	t.Run("parser down", func(t *testing.T) {
		f := newFixture(t, Options{}, http.StatusInternalServerError)
		w := serve(f.handler, uploadRequest(t, "app.log", "raw"))
		if w.Code != http.StatusBadGateway {
			t.Errorf("status %d, want 502", w.Code)
		}
		var body respond.ErrorBody
		decode(t, w, &body)
		if body.Error != "transport_failure" || body.Message == "" {
			t.Errorf("body = %+v", body)
		}
		if !f.store.Empty() {
			t.Error("failed upload populated the store")
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		f := newFixture(t, Options{}, http.StatusOK)
		w := serve(f.handler, uploadRequest(t, "app.exe", "raw"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})

	t.Run("no file field", func(t *testing.T) {
		f := newFixture(t, Options{}, http.StatusOK)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		if w := serve(f.handler, req); w.Code != http.StatusBadRequest {
			t.Errorf("status %d, want 400", w.Code)
		}
	})
}

func TestRefreshAcknowledges(t *testing.T) {
	f := newFixture(t, Options{}, http.StatusOK)
	w := serve(f.handler, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if w.Code != http.StatusOK {
		t.Errorf("refresh with no data: status %d", w.Code)
	}
}

func TestAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, Options{TokenHash: string(hash)}, http.StatusOK)

	if w := serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/status", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	if w := serve(f.handler, req); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	if w := serve(f.handler, req); w.Code != http.StatusOK {
		t.Errorf("header token: status %d", w.Code)
	}

	if w := serve(f.handler, httptest.NewRequest(http.MethodGet, "/api/status?token=s3cret", nil)); w.Code != http.StatusOK {
		t.Errorf("query token: status %d", w.Code)
	}
}

func TestStaticAndGzip(t *testing.T) {
	dir := t.TempDir()
	page := strings.Repeat("<p>logdash</p>", 200)
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, Options{WebDir: dir}, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(f.handler, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if enc := w.Header().Get("Content-Encoding"); enc != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", enc)
	}
}
