package route

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"keywatch/internal/config"
	"keywatch/internal/handler"
	"keywatch/internal/logger"
	"keywatch/internal/metrics"
	"keywatch/internal/middleware"
	"keywatch/internal/repository"
)

// Manager is what the routes need from the running monitor.
type Manager interface {
	handler.StatusSource
	ViewerCount() int
}

// SetupRoutes registers the API, log and metrics endpoints. /api and /logs
// are guarded by the API token when one is configured.
func SetupRoutes(manager Manager, hub handler.ViewerHub, alarmRepo repository.AlarmRepository,
	met *metrics.Metrics, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetViewers(manager.ViewerCount()) }).ServeHTTP(w, r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))
		r.Get("/status", handler.StatusHandler(manager, logger))
		r.Get("/view", handler.ViewWebsocketHandler(hub, logger))
		r.Get("/alarms", handler.GetAlarmsHandler(alarmRepo, logger))
		r.Delete("/alarms", handler.ClearAlarmsHandler(alarmRepo, logger))
	})

	r.Route("/logs/{level}", func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))
		r.Get("/", handler.ShowLogsHandler(logger))
		r.Post("/clear", handler.ClearLogsHandler(logger))
	})

	return r
}
