// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/duelhouse/wager-service/internal/ban"
	"github.com/duelhouse/wager-service/internal/cashout"
	"github.com/duelhouse/wager-service/internal/config"
	"github.com/duelhouse/wager-service/internal/engine"
	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/ledger"
	"github.com/duelhouse/wager-service/internal/middleware"
	"github.com/duelhouse/wager-service/internal/notify"
	"github.com/duelhouse/wager-service/internal/rematch"
	"github.com/duelhouse/wager-service/internal/room"
)

// Server bundles the wagering core and its collaborators for the HTTP
// surface. Handlers are methods so tests can assemble a Server around
// in-memory stores.
type Server struct {
	Cfg      config.Config
	Log      *logrus.Logger
	Engine   *engine.Engine
	Rematch  *rematch.Coordinator
	Store    ledger.Store
	Cashouts *cashout.Store
	Bans     ban.Store
	Hub      *notify.Hub
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.WithError(err).Error("failed to write json response")
	}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrRoomNotFound),
		errors.Is(err, ledger.ErrNoAccount),
		errors.Is(err, cashout.ErrNotFound),
		errors.Is(err, ban.ErrNotBanned):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, engine.ErrStakeOutOfBounds),
		errors.Is(err, game.ErrUnknownKind),
		errors.Is(err, game.ErrUnknownSide),
		errors.Is(err, game.ErrChoiceRequired),
		errors.Is(err, room.ErrChoiceForDieGame),
		errors.Is(err, cashout.ErrAmountInvalid),
		errors.Is(err, rematch.ErrSelfRematch):
		status = http.StatusBadRequest
	case errors.Is(err, room.ErrSelfJoin),
		errors.Is(err, room.ErrNotCreator),
		errors.Is(err, engine.ErrNotParticipant),
		errors.Is(err, rematch.ErrNoFinishedMatch):
		status = http.StatusForbidden
	case errors.Is(err, room.ErrNotWaiting),
		errors.Is(err, room.ErrNotPlaying),
		errors.Is(err, room.ErrChoiceSet),
		errors.Is(err, cashout.ErrNotPending):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.Log.WithError(err).Error("request failed")
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// userID pulls the authenticated account id injected by the auth middleware.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}
