package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeHandler struct{}

func (routeHandler) Register(e *echo.Echo) {
	e.GET("/teapot", func(c echo.Context) error {
		c.Response().Header().Set("Retry-After", "4")
		return echo.NewHTTPError(http.StatusTooManyRequests, "Slow down").SetInternal(errors.New("upstream"))
	})
	e.GET("/boom", func(echo.Context) error {
		return errors.New("database exploded")
	})
	e.GET("/panic", func(echo.Context) error {
		panic("bad handler")
	})
}

func TestServerErrorRendering(t *testing.T) {
	t.Parallel()

	srv := NewServer(nil, "", routeHandler{}, nil)
	assert.Equal(t, DefaultAddr, srv.Addr())

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/teapot", status: http.StatusTooManyRequests, body: "Slow down"},
		{path: "/boom", status: http.StatusInternalServerError, body: "Internal Server Error"},
		{path: "/panic", status: http.StatusInternalServerError, body: "Internal Server Error"},
		{path: "/missing", status: http.StatusNotFound, body: "Not Found"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		require.Equal(t, tc.status, rec.Code, tc.path)
		assert.Equal(t, tc.body, rec.Body.String(), tc.path)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain", tc.path)
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID), tc.path)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, "4", rec.Header().Get("Retry-After"))
}
