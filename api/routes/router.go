package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erandesamadhan2003/autopost-backend/api/controllers"
	"github.com/erandesamadhan2003/autopost-backend/api/middleware"
	"github.com/erandesamadhan2003/autopost-backend/internal/drafts"
	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface needs. Redis is
// optional; without it the generate rate limit is disabled.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Drafts   drafts.Service
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	var limiter redis.RateLimiter
	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}
	if deps.Redis != nil {
		limiter = deps.Redis
		ready["redis"] = deps.Redis
	}
	generatePolicy := middleware.NewRateLimitPolicy("generate", cfg.HTTP.GenerateWindow, cfg.HTTP.GenerateLimit)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, ready))

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Owner(logg))

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", controllers.DraftCreate(deps.Drafts, logg))
			r.Route("/{draftId}", func(r chi.Router) {
				r.Get("/", controllers.DraftGet(deps.Drafts, logg))
				r.Delete("/", controllers.DraftDelete(deps.Drafts, logg))
				r.With(middleware.UserRateLimit(generatePolicy, limiter, logg)).
					Post("/generate", controllers.DraftGenerate(deps.Drafts, logg))
				r.Put("/selection", controllers.DraftSelect(deps.Drafts, logg))
				r.Post("/schedule", controllers.DraftSchedule(deps.Drafts, logg))
			})
		})
		r.Get("/pipeline-jobs/{jobId}", controllers.PipelineJobGet(deps.Drafts, logg))
	})

	return r
}
