package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/datavend-backend/api/responses"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/datavend-backend/pkg/errors"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessDeps are the backends the readiness probe checks. Nil entries are skipped.
type ReadinessDeps struct {
	DB       pinger
	Redis    pinger
	BigQuery pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Datavend-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each configured backend and reports 503 on the first failure.
func HealthReady(cfg *config.Config, deps ReadinessDeps, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Datavend-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := []struct {
			name string
			dep  pinger
		}{
			{"postgres", deps.DB},
			{"redis", deps.Redis},
			{"bigquery", deps.BigQuery},
		}
		status := map[string]string{"status": "ready"}
		for _, check := range checks {
			if check.dep == nil {
				continue
			}
			if err := check.dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" unavailable").
						WithDetails(map[string]any{"dependency": check.name}))
				return
			}
			status[check.name] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
