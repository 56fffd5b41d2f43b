package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/starbids/starbids/starbids/auction"
	"github.com/starbids/starbids/starbids/database/models"
	"github.com/starbids/starbids/starbids/store"
)

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	Manager *auction.Manager
	Auth    *AuthService
	Hub     *Hub
	Store   store.Store
}

func NewHandler(manager *auction.Manager, authService *AuthService, hub *Hub, st store.Store) *Handler {
	return &Handler{Manager: manager, Auth: authService, Hub: hub, Store: st}
}

// Login upserts the caller's profile and issues a bearer token. Identity
// verification against the messenger platform happens upstream of this
// service.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      int64  `json:"user_id"`
		Name        string `json:"name"`
		Photo       string `json:"photo"`
		IsAnonymous bool   `json:"is_anonymous"`
		AnonName    string `json:"anon_name"`
		AnonPhoto   string `json:"anon_photo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.UserID <= 0 || req.Name == "" {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "user_id and name required")
		return
	}

	user := &models.User{
		UserID:      req.UserID,
		PublicName:  req.Name,
		PublicPhoto: req.Photo,
		IsAnonymous: req.IsAnonymous,
		AnonName:    req.AnonName,
		AnonPhoto:   req.AnonPhoto,
	}
	if err := h.Store.UpsertUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.Auth.IssueToken(req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req struct {
		Name        string               `json:"name"`
		Photo       string               `json:"photo"`
		Rounds      []models.RoundConfig `json:"rounds"`
		MinBid      decimal.Decimal      `json:"min_bid"`
		BidStep     decimal.Decimal      `json:"bid_step"`
		AntiSniping *models.AntiSniping  `json:"anti_sniping"`
		StartAt     *time.Time           `json:"start_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	a, err := h.Manager.CreateAuction(r.Context(), userID, auction.CreateAuctionParams{
		Name:        req.Name,
		Photo:       req.Photo,
		Rounds:      req.Rounds,
		MinBid:      req.MinBid,
		BidStep:     req.BidStep,
		AntiSniping: req.AntiSniping,
		StartAt:     req.StartAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, a)
}

func (h *Handler) StartAuction(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	a, round, err := h.Manager.StartAuction(r.Context(), auctionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"auction": a,
		"round":   round,
	})
}

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	var statuses []models.AuctionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.AuctionStatus(s))
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	views, err := h.Manager.ListAuctions(r.Context(), statuses, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(views))
	for _, v := range views {
		out = append(out, auctionJSON(v))
	}
	respond(w, http.StatusOK, map[string]any{"auctions": out})
}

func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}
	view, err := h.Manager.GetAuction(r.Context(), auctionID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, auctionJSON(view))
}

func (h *Handler) GetCurrentRound(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}
	round, err := h.Manager.CurrentRound(r.Context(), auctionID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, round)
}

// GetLeaderboard works with or without a token: authenticated viewers also
// get their own bid back.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}
	viewerID, _ := h.Auth.userFromRequest(r)

	result, err := h.Manager.GetLeaderboard(r.Context(), auctionID, viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"entries": result.Entries,
		"my_bid":  result.MyBid,
	})
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	result, err := h.Manager.PlaceBid(r.Context(), auctionID, userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"bid":         result.Bid,
		"rank":        result.Rank,
		"extended":    result.Extended,
		"leaderboard": result.Leaderboard,
	})
}

func (h *Handler) GetMyBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	bid, err := h.Manager.MyBid(r.Context(), auctionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, bid)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	wallet, err := h.Manager.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, wallet)
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	wallet, err := h.Manager.GetWallet(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, wallet)
}

func (h *Handler) GetWalletHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Manager.WalletHistory(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) GetMyGifts(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	gifts, err := h.Manager.MyGifts(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"gifts": gifts})
}

func (h *Handler) GetGift(w http.ResponseWriter, r *http.Request) {
	giftID, ok := pathID(w, r, "giftID")
	if !ok {
		return
	}
	gift, err := h.Manager.GetGift(r.Context(), giftID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, gift)
}

func (h *Handler) WatchAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}
	h.Hub.Subscribe(w, r, auctionID)
}

func auctionJSON(v *auction.AuctionView) map[string]any {
	return map[string]any{
		"auction":           v.Auction,
		"distributed_items": v.DistributedItems,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "invalid_id", "invalid id in path")
		return 0, false
	}
	return id, true
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response",
			slog.String("type", "http"),
			slog.String("error", err.Error()))
	}
}

// writeError maps engine errors onto HTTP statuses. Unknown errors become an
// opaque 500; the detail stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	var ve *auction.ValidationError
	if errors.As(err, &ve) {
		status := http.StatusBadRequest
		switch ve.Code {
		case auction.CodeAuctionNotFound:
			status = http.StatusNotFound
		case auction.CodeNotAuthorized:
			status = http.StatusForbidden
		}
		writeErrorCode(w, status, ve.Code, ve.Message)
		return
	}

	var ce *auction.ConflictError
	if errors.As(err, &ce) {
		writeErrorCode(w, http.StatusConflict, ce.Code, ce.Message)
		return
	}

	if errors.Is(err, store.ErrNotFound) {
		writeErrorCode(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	slog.Error("Request failed",
		slog.String("type", "http"),
		slog.String("error", err.Error()))
	writeErrorCode(w, http.StatusInternalServerError, "internal", "internal server error")
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
