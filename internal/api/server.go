package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pokeclass/pokeclass/pkg/logger"
)

// NewRouter wires every endpoint. All routes require a valid session
// token; teacher and admin groups additionally check the session role.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/catalog", h.GetCatalog)

			r.Route("/students/{studentID}", func(r chi.Router) {
				r.Get("/balance", h.GetBalance)
				r.Get("/transactions", h.GetTransactions)
				r.Get("/collection", h.GetCollection)
				r.Post("/purchase", h.Purchase)
				r.Get("/mystery", h.MysteryStatus)
				r.Post("/mystery/roll", h.MysteryRoll)
				r.Get("/mystery/history", h.MysteryHistory)
			})

			r.Route("/teacher", func(r chi.Router) {
				r.Use(h.requireTeacher)
				r.Post("/coins/award", h.AwardCoins)
				r.Post("/coins/remove", h.RemoveCoins)
				r.Post("/pokemon/award", h.AwardPokemon)
				r.Delete("/pokemon/{entryID}", h.RemovePokemon)
				r.Get("/credits", h.GetCredits)
				r.Get("/credits/transactions", h.GetCreditTransactions)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Post("/credits", h.AddCredits)
				r.Post("/tokens", h.MintToken)
				r.Get("/reports/ledger", h.ExportLedger)
			})
		})

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, h *Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(h),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start blocks until the listener fails or the server is shut down.
func (s *Server) Start() error {
	logger.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
