package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/handler"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/metrics"
	mw "github.com/parisxmas/OxiDB/OxiSubmit/internal/middleware"
)

// Handlers groups the route handlers. Blobs is nil unless images live in an
// OxiDB bucket; UploadDir is empty unless they live on local disk.
type Handlers struct {
	Submissions *handler.SubmissionHandler
	Blobs       *handler.BlobHandler
	Health      *handler.HealthHandler
	UploadDir   string
}

func New(logger *zap.Logger, m *metrics.Metrics, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(mw.CORS)
	r.Use(mw.Metrics(m))

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/add", h.Submissions.Add)
		r.Get("/users", h.Submissions.List)
	})

	if h.UploadDir != "" {
		static := http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(h.UploadDir))))
		r.Method(http.MethodGet, "/uploads/*", static)
		r.Method(http.MethodHead, "/uploads/*", static)
	}
	if h.Blobs != nil {
		r.Get("/blobs/{key}", h.Blobs.Download)
	}

	if h.Health != nil {
		r.Get("/health", h.Health.Health)
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// noDirListing hides directory indexes of the upload directory.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path[len(r.URL.Path)-1] == '/' {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
