package controllers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/api/responses"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type degradable interface {
	Degraded() bool
}

// HealthParams carry the backends the readiness probe inspects.
type HealthParams struct {
	Config    *config.Config
	Redis     pinger
	DB        pinger
	Sessions  degradable
	StartedAt time.Time
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shopbot-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports uptime, memory, and per-backend connectivity. A
// degraded session store is reported but does not fail readiness; the
// engine keeps serving from process memory.
func HealthReady(params HealthParams) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		backends := map[string]string{}
		if params.Redis != nil {
			backends["redis"] = pingStatus(params.Redis.Ping(ctx))
		}
		if params.DB != nil {
			backends["db"] = pingStatus(params.DB.Ping(ctx))
		}
		if params.Sessions != nil {
			if params.Sessions.Degraded() {
				backends["sessions"] = "degraded"
			} else {
				backends["sessions"] = "ok"
			}
		}

		w.Header().Set("X-Shopbot-Env", params.Config.App.Env)
		responses.WriteSuccess(w, map[string]any{
			"status":          "ready",
			"uptime_seconds":  int64(time.Since(params.StartedAt).Seconds()),
			"memory_alloc_mb": mem.Alloc / 1024 / 1024,
			"goroutines":      runtime.NumGoroutine(),
			"backends":        backends,
		})
	}
}

func pingStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
