package handler

import (
	"context"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/response"
)

// Check reports whether one dependency of the service is reachable.
type Check func(ctx context.Context) error

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func HealthcheckHandler(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok", Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WithField("check", name).WithError(err).Warn("healthcheck failed")
				status.Status = "unavailable"
				status.Checks[name] = err.Error()
				continue
			}
			status.Checks[name] = "ok"
		}

		if status.Status != "ok" {
			response.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		response.OK(w, status)
	}
}
