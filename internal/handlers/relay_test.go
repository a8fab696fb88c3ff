package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/teleput/internal/bindings"
	"github.com/memohai/teleput/internal/channel"
	"github.com/memohai/teleput/internal/media"
	"github.com/memohai/teleput/internal/relay"
	"github.com/memohai/teleput/internal/server"
	"github.com/memohai/teleput/internal/upload"
)

type stubSender struct {
	texts []string
	files []string
	err   error
}

func (s *stubSender) SendText(_ context.Context, _ int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.texts = append(s.texts, text)
	return nil
}

func (s *stubSender) SendFile(_ context.Context, _ int64, kind media.Kind, att channel.Attachment, _ string) error {
	if s.err != nil {
		return s.err
	}
	data, err := io.ReadAll(att.Reader)
	if err != nil {
		return err
	}
	s.files = append(s.files, kind.String()+":"+att.Name+":"+string(data))
	return nil
}

type stubKeys struct{}

func (stubKeys) Resolve(_ context.Context, token string) (int64, error) {
	if token == "k3y" {
		return 99, nil
	}
	return 0, bindings.ErrKeyNotFound
}

type countingObserver map[string]int

func (o countingObserver) ObserveRequest(endpoint, outcome string) {
	o[endpoint+" "+outcome]++
}

func newRelayServer(t *testing.T, sender *stubSender) (*server.Server, countingObserver) {
	t.Helper()
	opts := upload.Options{MaxFileSize: 16, MaxFieldBytes: 64, SpoolDir: t.TempDir()}
	r := relay.NewRelay(nil, stubKeys{}, sender, opts)
	h := NewRelayHandler(nil, r, "1K")
	obs := countingObserver{}
	h.SetObserver(obs)
	return server.NewServer(nil, "", NewPingHandler(nil), h), obs
}

func do(srv *server.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func jsonPost(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func formPost(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/post", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func uploadRequest(t *testing.T, fields map[string]string, fileName, fileMime, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range []string{"key", "raw", "text"} {
		if value, ok := fields[name]; ok {
			require.NoError(t, w.WriteField(name, value))
		}
	}
	if fileName != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="media"; filename="` + fileName + `"`}
		header["Content-Type"] = []string{fileMime}
		pw, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = io.WriteString(pw, fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestPingRoutes(t *testing.T) {
	t.Parallel()

	srv, _ := newRelayServer(t, &stubSender{})

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Teleput", rec.Body.String())

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(srv, httptest.NewRequest(http.MethodHead, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
		body   string
	}{
		{name: "json ok", req: func() *http.Request { return jsonPost(`{"key":"k3y","text":"hello"}`) }, status: 200, body: "OK"},
		{name: "form ok", req: func() *http.Request { return formPost(url.Values{"key": {"k3y"}, "text": {"hello"}}) }, status: 200, body: "OK"},
		{name: "missing key", req: func() *http.Request { return jsonPost(`{"text":"hello"}`) }, status: 400, body: "Missing key"},
		{name: "empty key", req: func() *http.Request { return jsonPost(`{"key":"","text":"hello"}`) }, status: 400, body: "Missing key"},
		{name: "unknown key", req: func() *http.Request { return formPost(url.Values{"key": {"nope"}}) }, status: 401, body: "Incorrect key"},
		{name: "missing text", req: func() *http.Request { return jsonPost(`{"key":"k3y"}`) }, status: 400, body: "Missing content"},
		{name: "media on plain endpoint", req: func() *http.Request { return jsonPost(`{"key":"k3y","text":"x","media":"abc"}`) }, status: 501},
		{name: "malformed json", req: func() *http.Request { return jsonPost(`{"key":`) }, status: 400, body: "Malformed request body"},
		{name: "body too large", req: func() *http.Request { return jsonPost(`{"key":"k3y","text":"` + strings.Repeat("x", 2048) + `"}`) }, status: 413},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sender := &stubSender{}
			srv, _ := newRelayServer(t, sender)
			rec := do(srv, tt.req())
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			if tt.status == 200 {
				assert.Equal(t, []string{"hello"}, sender.texts)
			} else {
				assert.Empty(t, sender.texts)
			}
		})
	}
}

func TestPostPlatformFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	sender := &stubSender{err: &channel.DeliveryError{Reason: channel.ReasonRateLimited, RetryAfter: 4500 * time.Millisecond}}
	srv, obs := newRelayServer(t, sender)
	rec := do(srv, jsonPost(`{"key":"k3y","text":"hello"}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Telegram received error"))
	assert.Equal(t, 1, obs["/post unavailable"])
}

func TestPostRejectedContentIsBadRequest(t *testing.T) {
	t.Parallel()

	sender := &stubSender{err: channel.NewDeliveryError(channel.ReasonInvalid, errors.New("text too long: 4097 characters, limit 4096"))}
	srv, obs := newRelayServer(t, sender)
	rec := do(srv, jsonPost(`{"key":"k3y","text":"hello"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Content rejected: text too long: 4097 characters, limit 4096", rec.Body.String())
	assert.Equal(t, 1, obs["/post bad_request"])
}

func TestUploadEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fields    map[string]string
		file      string
		mime      string
		content   string
		senderErr error
		status    int
		body      string
		retry     string
	}{
		{name: "text only", fields: map[string]string{"key": "k3y", "text": "hi"}, status: 200, body: "OK"},
		{name: "photo", fields: map[string]string{"key": "k3y"}, file: "cat.png", mime: "image/png", content: "png", status: 200, body: "OK"},
		{name: "missing key", fields: map[string]string{"text": "hi"}, status: 400, body: "Missing key"},
		{name: "empty key", fields: map[string]string{"key": "", "text": "hi"}, status: 400, body: "Missing key"},
		{name: "unknown key", fields: map[string]string{"key": "bad", "text": "hi"}, status: 401, body: "Incorrect key"},
		{name: "nothing to post", fields: map[string]string{"key": "k3y"}, status: 400, body: "Nothing to post"},
		{name: "too large", fields: map[string]string{"key": "k3y"}, file: "big.bin", mime: "application/octet-stream", content: strings.Repeat("b", 17), status: 413, body: "Max upload size is 16"},
		{name: "blocked", fields: map[string]string{"key": "k3y", "text": "hi"}, senderErr: &channel.DeliveryError{Reason: channel.ReasonForbidden}, status: 403},
		{name: "gone", fields: map[string]string{"key": "k3y", "text": "hi"}, senderErr: &channel.DeliveryError{Reason: channel.ReasonGone}, status: 410},
		{name: "rate limited", fields: map[string]string{"key": "k3y", "text": "hi"}, senderErr: &channel.DeliveryError{Reason: channel.ReasonRateLimited, RetryAfter: 30 * time.Second}, status: 429, retry: "30"},
		{name: "content rejected", fields: map[string]string{"key": "k3y", "text": "hi"}, senderErr: channel.NewDeliveryError(channel.ReasonInvalid, errors.New("text too long")), status: 400, body: "Content rejected: text too long"},
		{name: "upstream down", fields: map[string]string{"key": "k3y", "text": "hi"}, senderErr: errors.New("connection reset"), status: 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sender := &stubSender{err: tt.senderErr}
			srv, _ := newRelayServer(t, sender)
			rec := do(srv, uploadRequest(t, tt.fields, tt.file, tt.mime, tt.content))
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
			assert.Equal(t, tt.retry, rec.Header().Get("Retry-After"))
		})
	}
}

func TestUploadDeliversFile(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	srv, obs := newRelayServer(t, sender)
	rec := do(srv, uploadRequest(t, map[string]string{"key": "k3y", "raw": "1"}, "cat.png", "image/png", "png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"document:cat.png:png"}, sender.files)
	assert.Equal(t, 1, obs["/upload ok"])
}

func TestUploadRequiresMultipart(t *testing.T) {
	t.Parallel()

	srv, obs := newRelayServer(t, &stubSender{})
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{"key":"k3y"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, obs["/upload bad_request"])
}

func TestRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1", retryAfterSeconds(10*time.Millisecond))
	assert.Equal(t, "2", retryAfterSeconds(2*time.Second))
	assert.Equal(t, "3", retryAfterSeconds(2001*time.Millisecond))
}
