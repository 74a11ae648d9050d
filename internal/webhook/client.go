// Package webhook talks to the external log parsing service.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/op/go-logging"
	"github.com/valyala/fastjson"

	"github.com/coffersTech/logdash/internal/model"
	"github.com/coffersTech/logdash/internal/pkg/failure"
)

var log = logging.MustGetLogger("webhook")

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultFetchAttempts = 3
	DefaultRetryDelay    = 2 * time.Second

	// maxResponseBytes bounds how much of a response body is buffered.
	maxResponseBytes = 256 << 20
)

// Options configures a Client.
type Options struct {
	// URL receives uploaded log text.
	URL string
	// FetchURL, when set, returns the latest parsed logs on GET.
	FetchURL      string
	Timeout       time.Duration
	FetchAttempts int
	RetryDelay    time.Duration
	// HTTPClient overrides the default client. Its Timeout is left alone.
	HTTPClient *http.Client
}

// Client posts raw log text to the parsing service and decodes its answer.
type Client struct {
	url        string
	fetchURL   string
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	http       *http.Client
	parsers    fastjson.ParserPool
}

// New returns a Client with defaults filled in.
func New(opts Options) *Client {
	c := &Client{
		url:        opts.URL,
		fetchURL:   opts.FetchURL,
		timeout:    opts.Timeout,
		attempts:   opts.FetchAttempts,
		retryDelay: opts.RetryDelay,
		http:       opts.HTTPClient,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.attempts <= 0 {
		c.attempts = DefaultFetchAttempts
	}
	if c.retryDelay < 0 {
		c.retryDelay = 0
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// CanFetch reports whether a polling URL is configured.
func (c *Client) CanFetch() bool {
	return c.fetchURL != ""
}

// Parse sends content to the parsing service once and returns its records.
// Records come back with IDs unset; the collection assigns them.
func (c *Client) Parse(ctx context.Context, content []byte) ([]model.LogRecord, error) {
	const op = "webhook.Parse"
	if c.url == "" {
		return nil, failure.Newf(failure.KindTransport, op, "webhook URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(content))
	if err != nil {
		return nil, failure.New(failure.KindTransport, op, err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	records, err := c.do(ctx, op, req)
	if err != nil {
		log.Warningf("Parse of %d bytes failed after %v: %v", len(content), time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	log.Infof("Parsed %d bytes into %d records in %v", len(content), len(records), time.Since(start).Round(time.Millisecond))
	return records, nil
}

// Fetch polls the fetch URL, retrying transport and timeout failures with a
// fixed delay. Format failures are returned immediately.
func (c *Client) Fetch(ctx context.Context) ([]model.LogRecord, error) {
	const op = "webhook.Fetch"
	if !c.CanFetch() {
		return nil, failure.Newf(failure.KindTransport, op, "fetch URL is not configured")
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		records, err := c.fetchOnce(ctx, op)
		if err == nil {
			return records, nil
		}
		lastErr = err
		if !failure.Transient(err) || attempt == c.attempts {
			break
		}

		log.Warningf("Fetch attempt %d/%d failed: %v", attempt, c.attempts, err)
		select {
		case <-ctx.Done():
			return nil, classify(op, ctx.Err())
		case <-time.After(c.retryDelay):
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, op string) ([]model.LogRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fetchURL, nil)
	if err != nil {
		return nil, failure.New(failure.KindTransport, op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, op, req)
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]model.LogRecord, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classify(op, ctxErr)
		}
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.Newf(failure.KindTransport, op, "parsing service returned status %d", resp.StatusCode)
	}

	return c.decode(op, body)
}

// classify maps a transport-level error to a failure kind.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.New(failure.KindTimeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failure.New(failure.KindTimeout, op, err)
	}
	return failure.New(failure.KindTransport, op, err)
}

// decode reads {"data": [ {date, time, log_level, message, thread_id?}, ... ]}.
func (c *Client) decode(op string, body []byte) ([]model.LogRecord, error) {
	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, failure.New(failure.KindFormat, op, err)
	}
	data := v.Get("data")
	if data == nil || data.Type() != fastjson.TypeArray {
		return nil, failure.Newf(failure.KindFormat, op, "response has no data array")
	}

	items, _ := data.Array()
	records := make([]model.LogRecord, 0, len(items))
	for i, item := range items {
		if item.Type() != fastjson.TypeObject {
			return nil, failure.Newf(failure.KindFormat, op, "data[%d] is not an object", i)
		}
		records = append(records, model.LogRecord{
			Date:     str(item, "date"),
			Time:     str(item, "time"),
			LogLevel: model.NormalizeLevel(str(item, "log_level")),
			Message:  str(item, "message"),
			ThreadID: str(item, "thread_id"),
		})
	}
	return records, nil
}

// str returns a field as text. Numbers keep their literal form; null and
// missing fields are empty.
func str(v *fastjson.Value, key string) string {
	f := v.Get(key)
	if f == nil {
		return ""
	}
	switch f.Type() {
	case fastjson.TypeString:
		return string(f.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := f.Int64(); err == nil {
			return strconv.FormatInt(n, 10)
		}
		return f.String()
	case fastjson.TypeNull:
		return ""
	default:
		return fmt.Sprint(f)
	}
}
