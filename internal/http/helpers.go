package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"savings/internal/api"
	"savings/internal/middleware/trace"
)

// errorResponse maps a handler error to its HTTP response.
func errorResponse(err error) *JSONResponseBuilder {
	var verr *api.ValidationError
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		return RequestTooLargeError(err.Error())
	case errors.As(err, &verr):
		return BadRequestError(verr.Error())
	case errors.Is(err, api.ErrMalformedRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, api.ErrUnknownOperation):
		return NotFoundError(err.Error())
	default:
		return InternalServerError()
	}
}

// recoverPanics turns a handler panic into a logged 500.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.ErrorContext(r.Context(), "Panic recovered",
					"request_id", trace.GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(rec),
					"stack", string(debug.Stack()))
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// chain applies middleware so that the first one listed runs outermost.
func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	return h
}
