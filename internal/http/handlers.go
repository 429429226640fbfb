package http

import (
	"net/http"

	"savings/internal/api"
	"savings/internal/log"
)

// handleOperation serves one api operation. The raw body is handed to the
// api layer, which owns decoding and validation.
func (s *Server) handleOperation(op api.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp := RequirePOST(r); resp != nil {
			resp.Write(w)
			return
		}

		body, err := ReadBody(w, r, s.maxBodyBytes)
		if err != nil {
			logRequestError(r.Context(), op, err)
			errorResponse(err).Write(w)
			return
		}

		result, err := s.service.Do(r.Context(), op, body)
		if err != nil {
			logRequestError(r.Context(), op, err)
			errorResponse(err).Write(w)
			return
		}

		log.FromContext(r.Context()).DebugContext(r.Context(), "Operation completed",
			log.FieldOperation, string(op),
			"body_bytes", len(body))
		NewJSONResponse().JSON(result).Write(w)
	}
}

// handlePerformance reports wall clock, heap in use and goroutine count.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().JSON(s.performance.Report()).Write(w)
}

// handleHealth performs basic liveness check
func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Text("ok").Write(w)
}

// handleReady reports ready until shutdown starts.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		NewJSONResponse().Status(http.StatusServiceUnavailable).Text("shutting down").Write(w)
		return
	}
	NewJSONResponse().Text("ready").Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("no route for " + r.URL.Path).Write(w)
}
