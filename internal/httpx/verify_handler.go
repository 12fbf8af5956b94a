package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/chaintrack/chaintrack/internal/authenticity"
	"github.com/chaintrack/chaintrack/internal/redisx"
)

// VerifyHandler is the one endpoint exposed to an adversarial caller: anyone
// holding a scanned serial and a claimed token. It rate-limits per client and
// reveals nothing on failure beyond "not authentic".
type VerifyHandler struct {
	Verifier *authenticity.Verifier
	Redis    *redis.Client

	// MaxAttempts per client per window; brute-forcing tokens through this
	// endpoint should be slow.
	MaxAttempts int64
}

func (h *VerifyHandler) Register(r *chi.Mux) {
	r.Post("/verify", h.verify)
}

type verifyReq struct {
	SerialNumber string `json:"serial_number"`
	AuthCode     string `json:"auth_code"`
}

func (h *VerifyHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if !h.allow(ctx, r.RemoteAddr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts"})
		return
	}

	res, err := h.Verifier.Verify(ctx, req.SerialNumber, req.AuthCode)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "verification unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *VerifyHandler) allow(ctx context.Context, client string) bool {
	if h.Redis == nil {
		return true
	}
	max := h.MaxAttempts
	if max <= 0 {
		max = 20
	}
	key := fmt.Sprintf(redisx.KeyVerifyAttempts, client)
	n, err := h.Redis.Incr(ctx, key).Result()
	if err != nil {
		return true // redis down must not break verification
	}
	if n == 1 {
		_ = h.Redis.Expire(ctx, key, redisx.TTLVerifyWindow).Err()
	}
	return n <= max
}
