// internal/handlers/admin.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/models"
)

type banRequest struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// BanHandler adds a user to the access gate's deny list.
func (s *Server) BanHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	b := models.Ban{UserID: req.UserID, Reason: req.Reason, BannedBy: adminID}
	if err := s.Bans.Ban(r.Context(), b); err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"banned_by": adminID,
	}).Info("user banned")
	w.WriteHeader(http.StatusNoContent)
}

// UnbanHandler lifts a ban.
func (s *Server) UnbanHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := s.Bans.Unban(r.Context(), req.UserID); err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.WithFields(logrus.Fields{
		"user_id":     req.UserID,
		"unbanned_by": adminID,
	}).Info("user unbanned")
	w.WriteHeader(http.StatusNoContent)
}

// ListBansHandler returns all active bans.
func (s *Server) ListBansHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}
	bans, err := s.Bans.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if bans == nil {
		bans = []models.Ban{}
	}
	s.writeJSON(w, http.StatusOK, bans)
}

type depositRequest struct {
	UserID int64   `json:"user_id"`
	Amount float64 `json:"amount"`
}

// DepositHandler credits external money onto an account.
func (s *Server) DepositHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	if err := s.Store.Deposit(r.Context(), req.UserID, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.Log.WithFields(logrus.Fields{
		"user_id":  req.UserID,
		"amount":   req.Amount,
		"admin_id": adminID,
	}).Info("deposit credited")
	s.Hub.Notify(req.UserID, fmt.Sprintf("Your deposit of %.2f was credited.", req.Amount))
	w.WriteHeader(http.StatusNoContent)
}

// PendingCashoutsHandler lists the withdrawal queue, oldest first.
func (s *Server) PendingCashoutsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}
	pending := s.Cashouts.Pending(r.Context())
	if pending == nil {
		pending = []models.CashoutRequest{}
	}
	s.writeJSON(w, http.StatusOK, pending)
}

type cashoutIDRequest struct {
	ID string `json:"id"`
}

func parseCashoutID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req cashoutIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		http.Error(w, "invalid cashout id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// ProcessCashoutHandler marks a pending withdrawal as paid out.
func (s *Server) ProcessCashoutHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}
	id, ok := parseCashoutID(w, r)
	if !ok {
		return
	}
	req, err := s.Cashouts.MarkProcessed(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Hub.Notify(req.UserID, "Your cashout has been processed.")
	s.writeJSON(w, http.StatusOK, req)
}

// CancelCashoutHandler rejects a pending withdrawal and refunds it.
func (s *Server) CancelCashoutHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}
	id, ok := parseCashoutID(w, r)
	if !ok {
		return
	}
	req, err := s.Cashouts.Cancel(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Hub.Notify(req.UserID, "Your cashout was cancelled and refunded.")
	s.writeJSON(w, http.StatusOK, req)
}
