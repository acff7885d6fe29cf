package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/hub"
	"github.com/DoyleJ11/connect4-backend/internal/room"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

type createRoomResponse struct {
	RoomID string `json:"roomId"`
}

type historyResponse struct {
	History []types.HistoryEntry `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Create(r.Context())
		if err != nil {
			log.Error("create room", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create room"})
			return
		}
		writeJSON(w, http.StatusCreated, createRoomResponse{RoomID: rm.ID()})
	}
}

// History lists finished games for a room, most recent first.
func History(st store.Store, timeout time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if !roomExists(ctx, w, st, roomID, log) {
			return
		}
		records, err := st.ListMatchHistory(ctx, roomID)
		if err != nil {
			log.Error("list match history", zap.String("room", roomID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
			return
		}

		resp := historyResponse{History: make([]types.HistoryEntry, 0, len(records))}
		for _, rec := range records {
			resp.History = append(resp.History, types.HistoryEntry{
				Winner:   string(rec.Winner),
				PlayedAt: rec.PlayedAt.UTC().Format(time.RFC3339),
				Moves:    rec.Moves,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func Score(st store.Store, timeout time.Duration, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if !roomExists(ctx, w, st, roomID, log) {
			return
		}
		score, err := st.ReadScore(ctx, roomID)
		if err != nil {
			log.Error("read score", zap.String("room", roomID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load score"})
			return
		}
		writeJSON(w, http.StatusOK, room.ScoreView(score))
	}
}

// roomExists writes the error response itself when it returns false.
func roomExists(ctx context.Context, w http.ResponseWriter, st store.Store, roomID string, log *zap.Logger) bool {
	ok, err := st.RoomExists(ctx, roomID)
	switch {
	case err != nil && !errors.Is(err, store.ErrNotFound):
		log.Error("room lookup", zap.String("room", roomID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "room lookup failed"})
		return false
	case err != nil || !ok:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return false
	}
	return true
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
