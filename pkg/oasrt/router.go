// Package oasrt is the runtime used by generated routers: request binding,
// body decoding, correlation IDs and a ServeMux based router.
package oasrt

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// HandlerFunc binds a request, calls one service method and returns its
// result. ctx carries the request's correlation ID.
type HandlerFunc func(ctx context.Context, r *http.Request) (any, error)

// Router dispatches requests registered with Go 1.22 method patterns, e.g.
// "GET /widgets/{id}". It is safe for concurrent use once routes are
// registered.
type Router struct {
	mux        *http.ServeMux
	marshaller Marshaller
	logger     *slog.Logger
	idHeader   string
	newID      func() string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMarshaller sets the response marshaller. Defaults to JSONMarshaller.
func WithMarshaller(m Marshaller) RouterOption {
	return func(r *Router) { r.marshaller = m }
}

// WithLogger sets the logger used for binding and marshalling failures.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithRequestIDHeader changes the correlation ID header.
func WithRequestIDHeader(h string) RouterOption {
	return func(r *Router) { r.idHeader = h }
}

// WithRequestIDGenerator replaces the UUID generator.
func WithRequestIDGenerator(fn func() string) RouterOption {
	return func(r *Router) { r.newID = fn }
}

func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		marshaller: JSONMarshaller{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		idHeader:   RequestIDHeader,
		newID:      newRequestID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers h for pattern. Each matched request invokes h exactly
// once; its error or result goes to the marshaller.
func (rt *Router) Handle(pattern string, h HandlerFunc) {
	rt.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(rt.idHeader)
		if id == "" {
			id = rt.newID()
		}
		w.Header().Set(rt.idHeader, id)
		ctx := WithRequestID(r.Context(), id)
		r = r.WithContext(ctx)

		result, err := h(ctx, r)
		if err != nil {
			level := slog.LevelError
			if IsBindError(err) {
				level = slog.LevelWarn
			}
			rt.logger.LogAttrs(ctx, level, "request failed",
				slog.String("pattern", pattern),
				slog.String("request_id", id),
				slog.String("error", err.Error()),
			)
			rt.marshaller.Error(w, r, err)
			return
		}
		if err := rt.marshaller.Marshal(w, r, result); err != nil {
			rt.logger.LogAttrs(ctx, slog.LevelError, "marshal result",
				slog.String("pattern", pattern),
				slog.String("request_id", id),
				slog.String("error", err.Error()),
			)
		}
	})
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}
