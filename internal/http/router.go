package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrJamesThe3rd/khata/internal/http/auth"
	"github.com/MrJamesThe3rd/khata/internal/http/chat"
	"github.com/MrJamesThe3rd/khata/internal/http/customer"
	"github.com/MrJamesThe3rd/khata/internal/http/export"
	"github.com/MrJamesThe3rd/khata/internal/http/importcsv"
	"github.com/MrJamesThe3rd/khata/internal/http/inventory"
	"github.com/MrJamesThe3rd/khata/internal/http/ledger"
	"github.com/MrJamesThe3rd/khata/internal/http/matching"
	"github.com/MrJamesThe3rd/khata/internal/http/reminder"
	"github.com/MrJamesThe3rd/khata/internal/http/respond"
)

type Options struct {
	CORSOrigins []string
	// JWTSecret enables bearer auth on /api when set.
	JWTSecret string
	Metrics   prometheus.Gatherer
}

type Handlers struct {
	Chat      *chat.Handler
	Inventory *inventory.Handler
	Customers *customer.Handler
	Ledger    *ledger.Handler
	Reminders *reminder.Handler
	Import    *importcsv.Handler
	Matching  *matching.Handler
	Export    *export.Handler
}

func New(opts Options, h Handlers) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(auth.Middleware(opts.JWTSecret))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Chat.Routes(r)
		})

		r.Route("/inventory", h.Inventory.Routes)
		r.Route("/customers", h.Customers.Routes)
		r.Route("/ledger", h.Ledger.Routes)
		r.Route("/reminders", h.Reminders.Routes)
		r.Route("/import", h.Import.Routes)
		r.Route("/aliases", h.Matching.Routes)
		r.Route("/export", h.Export.Routes)
	})

	return router
}
