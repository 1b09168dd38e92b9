package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/bookstore-storefront/api/responses"
	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one dependency probed by /health/ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{}
		var failed []string
		for _, c := range checks {
			if c.Check == nil {
				continue
			}
			if err := c.Check(ctx); err != nil {
				status[c.Name] = "down"
				failed = append(failed, c.Name)
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": c.Name, "error": err.Error()}), "readiness.check_failed")
				}
				continue
			}
			status[c.Name] = "up"
		}

		if len(failed) > 0 {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").
				WithDetails(map[string]any{"dependencies": status}))
			return
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
