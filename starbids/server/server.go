// Package server exposes the auction system over HTTP: a JSON API for
// commands and queries plus a websocket stream of live auction events.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/starbids/starbids/starbids/logger"
)

type Server struct {
	httpServer *http.Server
}

func New(addr string, h *Handler) *Server {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Get("/auctions", h.ListAuctions)
		r.Get("/auctions/{auctionID}", h.GetAuction)
		r.Get("/auctions/{auctionID}/round", h.GetCurrentRound)
		r.Get("/auctions/{auctionID}/leaderboard", h.GetLeaderboard)
		r.Get("/gifts/{giftID}", h.GetGift)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			r.Post("/auctions", h.CreateAuction)
			r.Post("/auctions/{auctionID}/start", h.StartAuction)
			r.Post("/auctions/{auctionID}/bids", h.PlaceBid)
			r.Get("/auctions/{auctionID}/my-bid", h.GetMyBid)

			r.Post("/wallet/deposit", h.Deposit)
			r.Get("/wallet", h.GetWallet)
			r.Get("/wallet/history", h.GetWalletHistory)
			r.Get("/gifts", h.GetMyGifts)
		})
	})

	r.Get("/ws/auctions/{auctionID}", h.WatchAuction)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	logger.LogSystem("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.LogRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
