package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirpnet_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})

	// ToggleOperations counts follow, like and save toggles by outcome.
	ToggleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirpnet_toggle_operations_total",
		Help: "Total number of relationship toggles",
	}, []string{"relation", "result"})

	// ImageUploads counts image uploads by result.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirpnet_image_uploads_total",
		Help: "Total number of image uploads",
	}, []string{"result"})

	// AuthEvents counts signups, logins, logouts and rejected sessions.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirpnet_auth_events_total",
		Help: "Total number of authentication events",
	}, []string{"event", "result"})
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics collector. fiberprometheus
// registers its collectors globally, so only the first call creates one.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// MetricsMiddleware records request counts and latencies.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
