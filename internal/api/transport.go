package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// HeaderRequestID carries a per-request id for correlating client and server logs.
const HeaderRequestID = "X-Request-ID"

// loggingTransport tags each request with an id and logs metadata only:
// no bodies, no cookies.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

// LoggingTransport wraps next (http.DefaultTransport when nil).
func LoggingTransport(next http.RoundTripper, log *zap.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &loggingTransport{next: next, log: log}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Header.Get(HeaderRequestID) == "" {
		id, gerr := uuid.NewV4()
		if gerr == nil {
			req = req.Clone(req.Context())
			req.Header.Set(HeaderRequestID, id.String())
		}
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("panic in transport",
				zap.Any("reason", r),
				zap.ByteString("stack", debug.Stack()),
				zap.String("path", req.URL.Path),
			)
			resp, err = nil, fmt.Errorf("transport panic: %v", r)
		}
	}()

	resp, err = t.next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get(HeaderRequestID)),
		zap.Duration("dur", time.Since(start)),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.log.Debug("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
