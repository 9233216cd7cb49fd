package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	AllowedOrigins []string
	Resolver       AddressResolver
	// VoteLimiter is optional; nil disables vote rate limiting.
	VoteLimiter *AddressLimiter
	Logger      *slog.Logger
}

func NewHandler(pollHandler *PollHandler, voteHandler *VoteHandler, wsHandler http.Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if wsHandler != nil {
		r.Handle("/ws", wsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))

		r.Route("/polls", func(r chi.Router) {
			r.Post("/", pollHandler.CreatePoll)
			r.Get("/user/{creatorId}", pollHandler.ListByCreator)
			r.Get("/voted/{userId}", pollHandler.ListVotedBy)
			r.Get("/{id}", pollHandler.GetPoll)

			r.Group(func(r chi.Router) {
				if cfg.VoteLimiter != nil {
					r.Use(cfg.VoteLimiter.Middleware(cfg.Resolver))
				}
				r.Post("/{id}/vote", voteHandler.VoteOnPoll)
			})
		})
	})

	return r
}
