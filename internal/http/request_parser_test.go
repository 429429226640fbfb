package http

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadBody(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		limit         int64
		unknownLength bool
		wantErr       error
	}{
		{name: "within limit", body: `{"a":1}`, limit: 16},
		{name: "exactly at limit", body: strings.Repeat("x", 8), limit: 8},
		{name: "declared length over limit", body: strings.Repeat("x", 9), limit: 8, wantErr: ErrBodyTooLarge},
		{name: "streamed body over limit", body: strings.Repeat("x", 9), limit: 8, unknownLength: true, wantErr: ErrBodyTooLarge},
		{name: "default limit", body: `[]`, limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.unknownLength {
				req.ContentLength = -1
				req.Body = io.NopCloser(strings.NewReader(tt.body))
			}

			got, err := ReadBody(httptest.NewRecorder(), req, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadBody: %v", err)
			}
			if string(got) != tt.body {
				t.Errorf("body = %q, want %q", got, tt.body)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		method string
		check  func(*http.Request) *JSONResponseBuilder
		ok     bool
	}{
		{http.MethodPost, RequirePOST, true},
		{http.MethodGet, RequirePOST, false},
		{http.MethodGet, RequireGET, true},
		{http.MethodHead, RequireGET, true},
		{http.MethodDelete, RequireGET, false},
	}

	for _, tt := range tests {
		resp := tt.check(httptest.NewRequest(tt.method, "/", nil))
		if (resp == nil) != tt.ok {
			t.Errorf("%s: allowed=%v, want %v", tt.method, resp == nil, tt.ok)
		}
		if resp != nil && resp.statusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", tt.method, resp.statusCode)
		}
	}
}
