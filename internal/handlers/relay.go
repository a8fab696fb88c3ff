package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/memohai/teleput/internal/relay"
	"github.com/memohai/teleput/internal/upload"
)

const (
	postPath   = "/post"
	uploadPath = "/upload"

	outcomeOK = "ok"
)

var errMalformedBody = errors.New("malformed request body")

// Relayer is the relay surface used by RelayHandler.
type Relayer interface {
	Post(ctx context.Context, req relay.PostRequest) error
	Upload(ctx context.Context, reader *upload.Reader) error
}

// RequestObserver counts handled requests.
type RequestObserver interface {
	ObserveRequest(endpoint, outcome string)
}

// RelayHandler serves /post and /upload.
type RelayHandler struct {
	logger      *slog.Logger
	relay       Relayer
	maxPostBody string
	observer    RequestObserver
}

func NewRelayHandler(log *slog.Logger, r Relayer, maxPostBody string) *RelayHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RelayHandler{
		logger:      log.With(slog.String("handler", "relay")),
		relay:       r,
		maxPostBody: maxPostBody,
	}
}

// SetObserver attaches a request counter.
func (h *RelayHandler) SetObserver(o RequestObserver) {
	h.observer = o
}

func (h *RelayHandler) Register(e *echo.Echo) {
	if h.maxPostBody != "" {
		e.POST(postPath, h.Post, middleware.BodyLimit(h.maxPostBody))
	} else {
		e.POST(postPath, h.Post)
	}
	e.POST(uploadPath, h.Upload)
}

// Post relays a JSON or form encoded text message.
func (h *RelayHandler) Post(c echo.Context) error {
	req, err := decodePostRequest(c)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			h.observe(postPath, relay.KindEntityTooLarge.String())
			return he
		}
		h.observe(postPath, relay.KindBadRequest.String())
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request body").SetInternal(err)
	}
	return h.respond(c, postPath, h.relay.Post(c.Request().Context(), req))
}

// Upload relays a streamed multipart message.
func (h *RelayHandler) Upload(c echo.Context) error {
	mr, err := c.Request().MultipartReader()
	if err != nil {
		h.observe(uploadPath, relay.KindBadRequest.String())
		return echo.NewHTTPError(http.StatusBadRequest, "Expected multipart/form-data body")
	}
	return h.respond(c, uploadPath, h.relay.Upload(c.Request().Context(), upload.NewReader(mr)))
}

func (h *RelayHandler) respond(c echo.Context, endpoint string, err error) error {
	if err == nil {
		h.observe(endpoint, outcomeOK)
		return c.String(http.StatusOK, "OK")
	}
	re := relay.AsError(err)
	h.observe(endpoint, re.Kind.String())
	if re.Kind == relay.KindInternal {
		h.logger.Error("relay failed", slog.String("endpoint", endpoint), slog.Any("error", err))
	}
	if re.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", retryAfterSeconds(re.RetryAfter))
	}
	return echo.NewHTTPError(re.HTTPStatus(), re.Reason).SetInternal(err)
}

func (h *RelayHandler) observe(endpoint, outcome string) {
	if h.observer != nil {
		h.observer.ObserveRequest(endpoint, outcome)
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

// decodePostRequest reads key, text and a media marker from a JSON,
// urlencoded or multipart body.
func decodePostRequest(c echo.Context) (relay.PostRequest, error) {
	req := c.Request()
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	switch {
	case mediaType == echo.MIMEApplicationJSON:
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return relay.PostRequest{}, fmt.Errorf("%w: %w", errMalformedBody, err)
		}
		_, hasMedia := body["media"]
		return relay.PostRequest{
			Key:      jsonString(body["key"]),
			Text:     jsonString(body["text"]),
			HasMedia: hasMedia,
		}, nil
	case strings.HasPrefix(mediaType, "multipart/"):
		form, err := c.MultipartForm()
		if err != nil {
			return relay.PostRequest{}, fmt.Errorf("%w: %w", errMalformedBody, err)
		}
		_, hasFile := form.File["media"]
		_, hasValue := form.Value["media"]
		return relay.PostRequest{
			Key:      firstValue(form.Value["key"]),
			Text:     firstValue(form.Value["text"]),
			HasMedia: hasFile || hasValue,
		}, nil
	default:
		form, err := c.FormParams()
		if err != nil {
			return relay.PostRequest{}, fmt.Errorf("%w: %w", errMalformedBody, err)
		}
		return relay.PostRequest{
			Key:      form.Get("key"),
			Text:     form.Get("text"),
			HasMedia: form.Has("media"),
		}, nil
	}
}

func jsonString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return fmt.Sprint(value)
	}
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
