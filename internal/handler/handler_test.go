package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shortlink/internal/model"
	"shortlink/internal/service"
)

// fakeShortener records what the handler passed down and replies with canned
// results.
type fakeShortener struct {
	gotDestination string
	gotSlug        string
	gotCreator     string

	allocated *model.URLMapping
	allocErr  error

	resolved   string
	resolveErr error
}

func (f *fakeShortener) Allocate(_ context.Context, destination, requestedSlug, creatorAddress string) (*model.URLMapping, error) {
	f.gotDestination = destination
	f.gotSlug = requestedSlug
	f.gotCreator = creatorAddress
	if f.allocErr != nil {
		return nil, f.allocErr
	}
	if f.allocated != nil {
		return f.allocated, nil
	}
	return &model.URLMapping{Slug: "gen0000001", URL: destination, CreatorAddress: creatorAddress}, nil
}

func (f *fakeShortener) Resolve(_ context.Context, slug string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.resolved, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(svc Shortener) http.Handler {
	return NewHandler(svc, nil, discardLogger()).Routes()
}

func decodeMessage(t *testing.T, body io.Reader) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Message
}

func TestCreateMapping_JSONPayload(t *testing.T) {
	svc := &fakeShortener{}
	h := newTestHandler(svc)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"url":"https://example.com","slug":"abc123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com", svc.gotDestination)
	assert.Equal(t, "abc123", svc.gotSlug)
	assert.Equal(t, "203.0.113.7", svc.gotCreator)

	var m model.URLMapping
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	assert.Equal(t, "https://example.com", m.URL)
}

func TestCreateMapping_BareBody(t *testing.T) {
	svc := &fakeShortener{}
	h := newTestHandler(svc)

	req := httptest.NewRequest("POST", "/", strings.NewReader("https://example.com/long/path"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com/long/path", svc.gotDestination)
	assert.Empty(t, svc.gotSlug)
}

func TestCreateMapping_NoContentTypeTreatedAsBareBody(t *testing.T) {
	svc := &fakeShortener{}
	h := newTestHandler(svc)

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Without a JSON content type the body is the URL, braces and all.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"url":"https://example.com"}`, svc.gotDestination)
}

func TestCreateMapping_MalformedJSON(t *testing.T) {
	h := newTestHandler(&fakeShortener{})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"url": `))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMessage(t, rec.Body), "error parsing json")
}

func TestCreateMapping_EmptyBody(t *testing.T) {
	h := newTestHandler(&fakeShortener{})

	req := httptest.NewRequest("POST", "/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateMapping_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"occupied", service.ErrSlugOccupied, http.StatusConflict},
		{"too many retries", service.ErrTooManyRetries, http.StatusRequestTimeout},
		{"store unavailable", service.ErrStoreUnavailable, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeShortener{allocErr: tt.err})

			req := httptest.NewRequest("POST", "/", strings.NewReader("https://example.com"))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, decodeMessage(t, rec.Body))
		})
	}
}

func TestRedirect_Found(t *testing.T) {
	h := newTestHandler(&fakeShortener{resolved: "https://example.com"})

	req := httptest.NewRequest("GET", "/abc123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Location"))
}

func TestRedirect_NotFound(t *testing.T) {
	h := newTestHandler(&fakeShortener{resolveErr: service.ErrNotFound})

	req := httptest.NewRequest("GET", "/missing99", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Shortened URL not found.", decodeMessage(t, rec.Body))
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(&fakeShortener{})
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := NewHandler(&fakeShortener{}, func(context.Context) error {
		return errors.New("db down")
	}, discardLogger()).Routes()
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSlugOccupied, http.StatusConflict},
		{service.ErrTooManyRetries, http.StatusRequestTimeout},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrEmptyDestination, http.StatusBadRequest},
		{service.ErrStoreUnavailable, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got, msg := statusFor(tt.err)
		assert.Equal(t, tt.want, got, "error %v", tt.err)
		assert.NotEmpty(t, msg)
	}
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "203.0.113.7:51234", nil, "203.0.113.7"},
		{"x-forwarded-for", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "198.51.100.2"},
		{"x-forwarded-for garbage skipped", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "not-an-ip, 198.51.100.2"}, "198.51.100.2"},
		{"x-real-ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"ipv6 remote addr", "[2001:db8::1]:443", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientAddress(req))
		})
	}
}
