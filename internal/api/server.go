// Package api serves the storefront HTTP API the mini-app front end calls.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/carlot/internal/catalog"
	"github.com/sells-group/carlot/internal/inventory"
	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/store"
	"github.com/sells-group/carlot/pkg/relay"
	"github.com/sells-group/carlot/pkg/telegram"
	"github.com/sells-group/carlot/pkg/translate"
)

// Inventory is the listing source the handlers read from.
type Inventory interface {
	Load(ctx context.Context) (*inventory.Batch, error)
	Invalidate()
}

// Deps are the collaborators behind the API.
type Deps struct {
	Inventory  Inventory
	Rates      catalog.RateSource
	Relay      relay.Client
	Identity   telegram.IdentityProvider
	Translator translate.Translator
	Store      store.Store

	PageSize int
	Currency money.Currency

	// AllowedOrigins feeds the CORS policy; empty allows any origin.
	AllowedOrigins []string
}

// Server holds the handlers.
type Server struct {
	deps    Deps
	nowFunc func() time.Time
}

// New fills in defaults for optional collaborators.
func New(d Deps) *Server {
	if d.PageSize <= 0 {
		d.PageSize = catalog.DefaultPageSize
	}
	if d.Currency == "" {
		d.Currency = money.Reference
	}
	if d.Translator == nil {
		d.Translator = translate.Passthrough{}
	}
	if d.Store == nil {
		d.Store = store.Nop{}
	}
	if d.Identity == nil {
		d.Identity = telegram.NewVerifier("", 0)
	}
	return &Server{deps: d, nowFunc: time.Now}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	origins := s.deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", InitDataHeader},
		MaxAge:         300,
	}))
	r.Use(requestLogger)
	r.Use(metrics)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cars", s.handleListCars)
		r.Get("/cars/{id}", s.handleGetCar)
		r.Get("/filters", s.handleFilters)
		r.Get("/rates", s.handleRates)
		r.Post("/contact", s.handleContact)
		r.Post("/inventory/refresh", s.handleRefresh)
	})
	return r
}
