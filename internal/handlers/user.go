// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/duelhouse/wager-service/internal/auth"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/models"
)

type registerRequest struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler creates an account funded with the configured starting
// balance. Registering an existing id is a no-op that still returns the
// stored account, so clients can call it idempotently on first contact.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.ID == 0 || req.Username == "" || req.Password == "" {
		http.Error(w, "id, username, and password are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.CreateHash(req.Password, auth.Params)
	if err != nil {
		s.Log.WithError(err).Error("failed to hash password")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	acc := &models.Account{
		ID:       req.ID,
		Username: req.Username,
		Password: hash,
		Balance:  s.Cfg.StartingBalance,
	}
	if err := s.Store.CreateAccount(r.Context(), acc); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, acc)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginHandler checks credentials and returns a JWT, also set as an
// auth_token cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	acc, err := s.Store.AccountByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, ledger.ErrNoAccount) {
			http.Error(w, "authentication failed", http.StatusForbidden)
			return
		}
		s.writeError(w, err)
		return
	}

	match, err := auth.ComparePasswordAndHash(req.Password, acc.Password)
	if err != nil || !match {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	token, err := auth.CreateJWT(acc.ID)
	if err != nil {
		s.Log.WithError(err).Error("failed to create jwt")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TOKEN_EXPIRE_TIME_SEC,
	})
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type balanceResponse struct {
	UserID  int64   `json:"user_id"`
	Balance float64 `json:"balance"`
}

// BalanceHandler returns the caller's current balance.
func (s *Server) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	bal, err := s.Store.Balance(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Balance: bal})
}

// HistoryHandler returns the caller's recent matches, newest first.
// ?limit= caps the count, defaulting to 10.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	recs, err := s.Store.RecentMatches(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []models.MatchRecord{}
	}
	s.writeJSON(w, http.StatusOK, recs)
}

type cashoutRequestBody struct {
	Amount float64 `json:"amount"`
}

// RequestCashoutHandler files a withdrawal, reserving the amount at once.
func (s *Server) RequestCashoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req cashoutRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	created, err := s.Cashouts.Create(r.Context(), userID, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

// MyCashoutsHandler lists the caller's withdrawal requests, newest first.
func (s *Server) MyCashoutsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	reqs := s.Cashouts.UserRequests(r.Context(), userID)
	if reqs == nil {
		reqs = []models.CashoutRequest{}
	}
	s.writeJSON(w, http.StatusOK, reqs)
}
