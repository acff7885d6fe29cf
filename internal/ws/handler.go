package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/DoyleJ11/connect4-backend/internal/hub"
	"github.com/DoyleJ11/connect4-backend/internal/room"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

type Config struct {
	// ReadTimeout bounds the wait for the join frame and for each pong.
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OutboxSize     int
	OriginPatterns []string
	Logger         *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = 16
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

var errSessionEnded = errors.New("room ended the session")

// Handler upgrades /ws?room=<id>. The first frame must be a join carrying the
// player's durable identity; everything after it is forwarded to the room.
func Handler(h *hub.Hub, cfg Config) http.HandlerFunc {
	cfg = cfg.withDefaults()
	log := cfg.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		rm, err := h.Get(r.Context(), roomID)
		if err != nil {
			code := types.CodeStoreFailure
			if errors.Is(err, hub.ErrRoomNotFound) {
				code = types.CodeRoomNotFound
			}
			reject(r.Context(), conn, cfg, types.ErrorMessage(code, err.Error()))
			return
		}

		join, err := readJoin(r.Context(), conn, cfg)
		if err != nil {
			reject(r.Context(), conn, cfg, types.ErrorMessage(types.CodeBadMessage, err.Error()))
			return
		}

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, cfg.OutboxSize)
		if _, err := rm.Join(r.Context(), connID, join.Identity, out); err != nil {
			reject(r.Context(), conn, cfg, types.ErrorMessage(room.CodeFor(err), err.Error()))
			return
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
			defer cancel()
			_ = rm.Send(ctx, room.Leave{ConnID: connID})
		}()

		connLog := log.With(zap.String("room", roomID), zap.String("conn", connID))
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error { return writeLoop(ctx, conn, cfg, out) })
		g.Go(func() error { return pingLoop(ctx, conn, cfg) })
		g.Go(func() error { return readLoop(ctx, conn, cfg, rm, connID) })

		err = g.Wait()
		switch {
		case errors.Is(err, errSessionEnded):
			conn.Close(websocket.StatusNormalClosure, "session ended")
		case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
			websocket.CloseStatus(err) == websocket.StatusGoingAway:
		default:
			connLog.Debug("connection closed", zap.Error(err))
		}
	}
}

// readJoin waits for the first frame, which must be a join with an identity.
func readJoin(ctx context.Context, conn *websocket.Conn, cfg Config) (types.ClientMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return types.ClientMessage{}, err
	}
	var msg types.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return types.ClientMessage{}, errors.New("bad json")
	}
	if msg.Type != types.MsgJoin {
		return types.ClientMessage{}, errors.New("first message must be join")
	}
	return msg, nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, cfg Config, rm *room.Room, connID string) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var msg types.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := write(ctx, conn, cfg, types.ErrorMessage(types.CodeBadMessage, "bad json")); err != nil {
				return err
			}
			continue
		}

		if err := rm.Send(ctx, room.FromClient{ConnID: connID, Msg: msg}); err != nil {
			return err
		}
	}
}

// writeLoop drains the outbox. The room closes it when it drops this
// connection, which ends the session.
func writeLoop(ctx context.Context, conn *websocket.Conn, cfg Config, out <-chan types.ServerMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-out:
			if !ok {
				return errSessionEnded
			}
			if err := write(ctx, conn, cfg, msg); err != nil {
				return err
			}
			if msg.Type == types.EvtError && msg.Code.Fatal() {
				return errSessionEnded
			}
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn, cfg Config) error {
	ticker := time.NewTicker(cfg.ReadTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, cfg.ReadTimeout/2)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, cfg Config, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// reject sends a final error frame and closes the socket.
func reject(ctx context.Context, conn *websocket.Conn, cfg Config, msg types.ServerMessage) {
	_ = write(ctx, conn, cfg, msg)
	conn.Close(websocket.StatusPolicyViolation, string(msg.Code))
}
