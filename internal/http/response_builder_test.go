package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"savings/internal/api"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		JSON(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Body.String() != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("custom header not set")
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().JSON(make(chan int)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
	if w.Body.String() != `{"error":"internal server error"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_Text(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Text("ok").Write(w)

	if w.Body.String() != "ok" || w.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		t.Errorf("got %q with %q", w.Body.String(), w.Header().Get("Content-Type"))
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
		body    string
	}{
		{"bad request", BadRequestError("nope"), http.StatusBadRequest, `{"error":"nope"}`},
		{"not found", NotFoundError("missing"), http.StatusNotFound, `{"error":"missing"}`},
		{"too large", RequestTooLargeError("big"), http.StatusRequestEntityTooLarge, `{"error":"big"}`},
		{"rate limited", TooManyRequestsError(), http.StatusTooManyRequests, `{"error":"rate limit exceeded, please try again later"}`},
		{"internal", InternalServerError(), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"method", MethodNotAllowedError(http.MethodGet, http.MethodHead), http.StatusMethodNotAllowed, `{"error":"method not allowed, use GET, HEAD"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.body {
				t.Errorf("Body = %s, want %s", w.Body.String(), tt.body)
			}
		})
	}
}

func TestErrorResponseMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"body too large", fmt.Errorf("%w: limit", ErrBodyTooLarge), http.StatusRequestEntityTooLarge},
		{"validation", &api.ValidationError{Problems: []string{"wage is required"}}, http.StatusBadRequest},
		{"malformed", fmt.Errorf("%w: eof", api.ErrMalformedRequest), http.StatusBadRequest},
		{"unknown operation", fmt.Errorf("%w: gold", api.ErrUnknownOperation), http.StatusNotFound},
		{"anything else", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorResponse(tt.err).statusCode; got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
		})
	}
}
