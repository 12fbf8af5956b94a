package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(identity.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var kindStatus = map[fault.Kind]int{
	fault.KindValidation:        http.StatusBadRequest,
	fault.KindAuthorization:     http.StatusForbidden,
	fault.KindNotFound:          http.StatusNotFound,
	fault.KindPrecondition:      http.StatusConflict,
	fault.KindInsufficientStock: http.StatusConflict,
}

func errStatus(err error) int {
	var fe *fault.Error
	if errors.As(err, &fe) {
		if code, ok := kindStatus[fe.Kind]; ok {
			return code
		}
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		code, ok := kindStatus[fe.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		writeJSON(w, code, map[string]string{"error": fe.Error(), "kind": string(fe.Kind)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
