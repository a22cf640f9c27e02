package controllers

import (
	"context"
	"net/http"

	"github.com/sabzico/fulfillment-backend/api/responses"
	"github.com/sabzico/fulfillment-backend/pkg/config"
	pkgerrors "github.com/sabzico/fulfillment-backend/pkg/errors"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
)

type dependencyPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sabzico-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies before reporting ready. Nil pingers
// are skipped so tests and partial deployments can opt out.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, pubsub dependencyPinger) http.HandlerFunc {
	deps := []struct {
		name   string
		pinger dependencyPinger
	}{
		{"database", db},
		{"redis", redis},
		{"pubsub", pubsub},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Sabzico-Env", cfg.App.Env)
		for _, dep := range deps {
			if dep.pinger == nil {
				continue
			}
			if err := dep.pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
