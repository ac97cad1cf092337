// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/duelhouse/wager-service/internal/engine"
	"github.com/duelhouse/wager-service/internal/game"
	"github.com/duelhouse/wager-service/internal/room"
)

type createRoomRequest struct {
	Kind  string  `json:"kind"`
	Stake float64 `json:"stake"`
}

// CreateRoomHandler opens a waiting room, escrowing the creator's stake.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	kind, err := game.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rm, err := s.Engine.CreateRoom(r.Context(), userID, kind, req.Stake)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rm.View())
}

// ListRoomsHandler returns waiting rooms, optionally filtered by ?kind=.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.userID(w, r); !ok {
		return
	}

	var kind game.Kind
	if v := r.URL.Query().Get("kind"); v != "" {
		k, err := game.ParseKind(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		kind = k
	}

	rooms := s.Engine.Registry().ListWaiting(kind)
	views := make([]room.View, 0, len(rooms))
	for _, rm := range rooms {
		views = append(views, rm.View())
	}
	s.writeJSON(w, http.StatusOK, views)
}

// MyRoomsHandler returns every room the caller is seated in, waiting or
// already playing.
func (s *Server) MyRoomsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	mine := s.Engine.Registry().UserRooms(userID)
	views := make([]room.View, 0, len(mine))
	for _, rm := range mine {
		views = append(views, rm.View())
	}
	s.writeJSON(w, http.StatusOK, views)
}

type roomIDRequest struct {
	RoomID string `json:"room_id"`
}

// JoinRoomHandler seats the caller as opponent, escrowing their stake.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req roomIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	rm, err := s.Engine.JoinRoom(r.Context(), req.RoomID, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rm.View())
}

// CancelRoomHandler dissolves the caller's waiting room and refunds the
// stake.
func (s *Server) CancelRoomHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req roomIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := s.Engine.CancelRoom(r.Context(), req.RoomID, userID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pickSideRequest struct {
	RoomID string `json:"room_id"`
	Side   string `json:"side"`
}

// PickSideHandler records the creator's coin side for a coin-flip room.
func (s *Server) PickSideHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req pickSideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	side, err := game.ParseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.Engine.SetChoice(r.Context(), req.RoomID, userID, side); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type playResponse struct {
	Result     game.Result       `json:"result"`
	Settlement engine.Settlement `json:"settlement"`
}

// PlayHandler resolves the match and settles the pot. Either participant
// may trigger it once the room is full.
func (s *Server) PlayHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req roomIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	res, settlement, err := s.Engine.Play(r.Context(), req.RoomID, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, playResponse{Result: res, Settlement: settlement})
}

type rematchRequest struct {
	OpponentID int64   `json:"opponent_id"`
	Kind       string  `json:"kind"`
	Stake      float64 `json:"stake"`
}

type rematchResponse struct {
	State string     `json:"state"`
	Room  *room.View `json:"room,omitempty"`
}

// RematchHandler registers a rematch intent; when both sides have asked,
// the paired room comes back already in play.
func (s *Server) RematchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req rematchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	kind, err := game.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, err)
		return
	}

	reply, err := s.Rematch.Request(r.Context(), userID, req.OpponentID, kind, req.Stake)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := rematchResponse{State: string(reply.State)}
	if reply.Room != nil {
		v := reply.Room.View()
		resp.Room = &v
	}
	s.writeJSON(w, http.StatusOK, resp)
}
