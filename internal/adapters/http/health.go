package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by /v1/health; set with -ldflags at build time.
var Version = "dev"

var errDisconnected = errors.New("disconnected")

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": Version,
		})
	}
}

// probe is one readiness check. A nil check means the backend is not configured.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) error
}

// ReadyHandler checks the database, NATS and the cache.
// The database must be configured; any configured backend must answer.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		probes := []probe{{name: "database", required: true}, {name: "nats"}, {name: "cache"}}
		if deps.DB != nil {
			probes[0].check = deps.DB.Ping
		}
		if deps.NATS != nil {
			nc := deps.NATS
			probes[1].check = func(context.Context) error {
				if !nc.IsConnected() {
					return errDisconnected
				}
				return nil
			}
		}
		if deps.Cache != nil {
			probes[2].check = deps.Cache.Ping
		}

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			switch {
			case p.check == nil:
				checks[p.name] = "not configured"
				ready = ready && !p.required
			default:
				if err := p.check(ctx); err != nil {
					checks[p.name] = "error: " + err.Error()
					ready = false
				} else {
					checks[p.name] = "ok"
				}
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
