package handler

import (
	"context"
	"net/http"

	"fsanano/answer-book/internal/metrics"
	"fsanano/answer-book/internal/service"
	"fsanano/answer-book/internal/service/oracle"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Oracle answers a user's question. *oracle.Client satisfies it.
type Oracle interface {
	Ask(ctx context.Context, question string) oracle.Result
}

type AssetConfig struct {
	Dir       string
	IndexFile string
}

type Handler struct {
	router   *chi.Mux
	balances *service.BalanceService
	oracle   Oracle
	assets   AssetConfig
	log      *zap.Logger
}

func NewHandler(balances *service.BalanceService, oracle Oracle, assets AssetConfig, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	router := chi.NewRouter()

	h := &Handler{
		router:   router,
		balances: balances,
		oracle:   oracle,
		assets:   assets,
		log:      log,
	}

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(h.observe)
	router.Use(middleware.Recoverer)
	router.Use(allowAllOrigins)

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	h.router.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthCheck)
	})
	h.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	h.router.Route("/api", func(r chi.Router) {
		r.Post("/init", h.InitUser)
		r.Post("/chat", h.Chat)
		r.Post("/pay", h.Pay)
	})

	h.router.Get("/", h.HomePage)
	h.router.Get("/{filename}", h.GetAsset)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
