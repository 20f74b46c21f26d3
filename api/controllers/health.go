package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/menubot/api/responses"
	"github.com/angelmondragon/menubot/pkg/config"
	pkgerrors "github.com/angelmondragon/menubot/pkg/errors"
	"github.com/angelmondragon/menubot/pkg/logger"
)

const (
	envHeader    = "X-Menubot-Env"
	readyTimeout = 3 * time.Second
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type catalogStatus interface {
	Loaded() bool
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once a catalog snapshot is published and every
// configured dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, catalog catalogStatus, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{"catalog": "ok"}
		if catalog == nil || !catalog.Loaded() {
			checks["catalog"] = "not loaded"
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			g.Go(func() error {
				status := "ok"
				if err := dep.Ping(gctx); err != nil {
					status = err.Error()
				}
				mu.Lock()
				checks[name] = status
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, status := range checks {
			if status != "ok" {
				err := pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks)
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
