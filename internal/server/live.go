package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/stepform/stepform/pkg/backend"
	"github.com/stepform/stepform/pkg/live"
	"github.com/stepform/stepform/pkg/logging"
	"github.com/stepform/stepform/pkg/schema"
	"github.com/stepform/stepform/pkg/session"
)

// handleLive upgrades to a websocket and runs one session controller for the
// requested step. Client frames (set, select, save) mutate the controller;
// progress, save-state and field-error frames flow back down.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("step")
	if slug == "" {
		apiError(w, http.StatusBadRequest, "missing step")
		return
	}
	sess := sessionFrom(r.Context())
	env, err := s.backend.FetchForm(r.Context(), sess, s.cfg.FormID)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			apiError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.logger.Error("fetch form for live channel", logging.Err(err))
		apiError(w, http.StatusBadGateway, "form is unavailable")
		return
	}
	var step *schema.Group
	for i, st := range schema.Steps(env.Structure) {
		if st.Slug == slug {
			step = &env.Structure[i]
			break
		}
	}
	if step == nil {
		http.NotFound(w, r)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept", logging.Err(err))
		return
	}
	s.logger.Debug("live channel open",
		logging.String("step", slug),
		logging.Bool("readOnly", env.Meta.IsSubmitted))

	topic := "live:" + uuid.NewString()
	ctrl := session.New(session.Config{
		Step:      step,
		Structure: env.Structure,
		Saved:     env.SavedData,
		Saver: session.SaverFunc(func(ctx context.Context, partial schema.Values) error {
			return s.backend.SaveDraft(ctx, sess, partial)
		}),
		Bus:      s.bus,
		Topic:    topic,
		Debounce: s.cfg.SaveDebounce,
		ReadOnly: env.Meta.IsSubmitted,
		Logger:   s.logger,
	})
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.bus.Subscribe(topic, func(msg []byte) {
		if werr := conn.Write(ctx, websocket.MessageBinary, msg); werr != nil {
			cancel()
		}
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "bus unavailable")
		return
	}
	defer sub.Unsubscribe()

	// Initial state so a fresh socket paints without waiting for an edit.
	s.sendFrames(ctx, conn,
		live.Progress(ctrl.Progress()),
		live.SaveState(ctrl.Status().String(), ""))

	s.readLive(ctx, conn, ctrl)
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLive consumes client frames until the socket or context dies.
func (s *Server) readLive(ctx context.Context, conn *websocket.Conn, ctrl *session.Controller) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		frame, err := live.Decode(data)
		if err != nil {
			s.logger.Debug("drop malformed live frame", logging.Err(err))
			continue
		}
		switch frame.Type {
		case live.FrameSet:
			ctrl.SetValue(frame.Key, frame.Value)
		case live.FrameSelect:
			ctrl.SelectBranch(frame.Key, frame.Option)
		case live.FrameSave:
			if err := ctrl.Save(ctx); err != nil {
				s.logger.Warn("live save", logging.Err(err))
			}
		default:
			// Downstream frame types are never valid from the client.
		}
	}
}

func (s *Server) sendFrames(ctx context.Context, conn *websocket.Conn, frames ...*live.Frame) {
	for _, f := range frames {
		data, err := live.Encode(f)
		if err != nil {
			s.logger.Error("encode live frame", logging.Err(err))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
			return
		}
	}
}
