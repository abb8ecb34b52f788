package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/statusbot/internal/auth"
	"github.com/obsidianstack/statusbot/internal/dispatch"
	"github.com/obsidianstack/statusbot/internal/metrics"
	"github.com/obsidianstack/statusbot/internal/publish"
	"github.com/obsidianstack/statusbot/internal/templates"
)

const templateDoc = `
[default]
down-template = "{{.group}}/{{.name}} is down"
up-template = "{{.group}}/{{.name}} is up"

[default-friendly]
down-template = "{{.friendly_name}} is down"
up-template = "{{.friendly_name}} is up"

[service.web.api]
friendly-name = "API Gateway"

[service.web.cdn.template]
down-template = "{{.friendly_name}} cdn down"
up-template = "cdn up"
`

type posts struct {
	mu   sync.Mutex
	list []string
	err  error
}

func (p *posts) publisher() publish.Publisher {
	return publish.Func(func(_ context.Context, text string) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.list = append(p.list, text)
		return p.err
	})
}

func (p *posts) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.list...)
}

func newHandler(t *testing.T, live bool, p *posts, opts Options) http.Handler {
	t.Helper()
	st, err := templates.Parse([]byte(templateDoc), templates.FormatTOML)
	require.NoError(t, err)
	opts.Overrides = st.Len()
	return New(dispatch.New(st, p.publisher(), live, dispatch.WithMetrics(opts.Metrics)), opts)
}

func post(t *testing.T, h http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestAlert_Published(t *testing.T) {
	p := &posts{}
	h := newHandler(t, true, p, Options{})

	rec := post(t, h, "/", `{"kind":"TRIGGERED","group":"db","name":"primary","description":"lag"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[AlertResponse](t, rec)
	assert.Equal(t, "published", resp.Status)
	assert.Equal(t, "db/primary is down", resp.Text)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, resp.RequestID, rec.Header().Get(requestIDHeader))
	assert.Equal(t, []string{"db/primary is down"}, p.all())
}

func TestAlert_V1RouteAndCaseInsensitiveKind(t *testing.T) {
	p := &posts{}
	h := newHandler(t, true, p, Options{})

	rec := post(t, h, "/api/v1/alerts", `{"kind":"resolved","group":"web","name":"api"}`,
		requestIDHeader, "req-123")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[AlertResponse](t, rec)
	assert.Equal(t, "API Gateway is up", resp.Text)
	assert.Equal(t, "req-123", resp.RequestID)
}

func TestAlert_Skipped(t *testing.T) {
	p := &posts{}
	h := newHandler(t, false, p, Options{})

	rec := post(t, h, "/", `{"kind":"TRIGGERED","group":"web","name":"api"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[AlertResponse](t, rec)
	assert.Equal(t, "skipped", resp.Status)
	assert.Equal(t, "API Gateway is down", resp.Text)
	assert.Empty(t, p.all())
}

func TestAlert_EmptyIdentifiersAccepted(t *testing.T) {
	h := newHandler(t, false, &posts{}, Options{})

	rec := post(t, h, "/", `{"kind":"TRIGGERED","group":"","name":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/ is down", decodeBody[AlertResponse](t, rec).Text)
}

func TestAlert_BadRequests(t *testing.T) {
	m := metrics.New()
	p := &posts{}
	h := newHandler(t, true, p, Options{Metrics: m})

	bodies := map[string]string{
		"not json":      `{"kind":`,
		"empty body":    ``,
		"unknown kind":  `{"kind":"FIRING","group":"db","name":"primary"}`,
		"missing kind":  `{"group":"db","name":"primary"}`,
		"missing group": `{"kind":"TRIGGERED","name":"primary"}`,
		"missing name":  `{"kind":"TRIGGERED","group":"db"}`,
		"wrong type":    `{"kind":"TRIGGERED","group":1,"name":"primary"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := post(t, h, "/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
	assert.Empty(t, p.all())

	rec := post(t, h, "/", `{"kind":"TRIGGERED"}`)
	assert.Contains(t, decodeBody[errorResponse](t, rec).Error, "group")
}

func TestAlert_TemplateError(t *testing.T) {
	p := &posts{}
	h := newHandler(t, true, p, Options{})

	rec := post(t, h, "/", `{"kind":"TRIGGERED","group":"web","name":"cdn"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed rendering template", decodeBody[errorResponse](t, rec).Error)
	assert.Empty(t, p.all())
}

func TestAlert_PublishError(t *testing.T) {
	p := &posts{err: errors.New("timeout")}
	h := newHandler(t, true, p, Options{})

	rec := post(t, h, "/", `{"kind":"TRIGGERED","group":"db","name":"primary"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed publishing post", decodeBody[errorResponse](t, rec).Error)

	// Subsequent requests go through once the publisher recovers.
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	rec = post(t, h, "/", `{"kind":"RESOLVED","group":"db","name":"primary"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAlert_Auth(t *testing.T) {
	h := newHandler(t, false, &posts{}, Options{Auth: auth.APIKey("apikey", "x-api-key", "s3cret")})

	body := `{"kind":"TRIGGERED","group":"db","name":"primary"}`
	assert.Equal(t, http.StatusUnauthorized, post(t, h, "/", body).Code)
	assert.Equal(t, http.StatusUnauthorized, post(t, h, "/api/v1/alerts", body, "x-api-key", "nope").Code)
	assert.Equal(t, http.StatusOK, post(t, h, "/", body, "x-api-key", "s3cret").Code)

	// Health stays open.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newHandler(t, true, &posts{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Live)
	assert.Equal(t, 2, resp.Overrides)
}

func TestRouting_MethodAndPath(t *testing.T) {
	h := newHandler(t, true, &posts{}, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouting_UnmatchedCarryRequestID(t *testing.T) {
	h := newHandler(t, true, &posts{}, Options{})

	for _, tc := range []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, tc.code, rec.Code, tc.path)

		id := rec.Header().Get(requestIDHeader)
		assert.NotEmpty(t, id, tc.path)
		assert.Equal(t, id, decodeBody[errorResponse](t, rec).RequestID, tc.path)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/health", nil)
	req.Header.Set(requestIDHeader, "given-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "given-id", rec.Header().Get(requestIDHeader))
	assert.Equal(t, "given-id", decodeBody[errorResponse](t, rec).RequestID)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	h := newHandler(t, false, &posts{}, Options{Metrics: m})

	post(t, h, "/", `{"kind":"TRIGGERED","group":"db","name":"primary"}`)
	post(t, h, "/", `not json`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `statusbot_alerts_total{kind="TRIGGERED",result="skipped"} 1`)
	assert.Contains(t, body, `statusbot_template_branch_total{branch="default"} 1`)
	assert.Contains(t, body, `statusbot_decode_errors_total 1`)
}
