package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/mira/internal/pipeline"
	"github.com/antoniostano/mira/internal/protocol"
	"github.com/antoniostano/mira/internal/session"
)

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 16)
	outbound := make(chan any, 16)
	runDone := make(chan struct{})

	// Turns run one at a time per connection, in arrival order.
	go func() {
		defer close(runDone)
		s.runTurnLoop(ctx, sess, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					s.metrics.WSWriteErrors.WithLabelValues("write_json").Inc()
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.SessionInactivityTimeout))
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the
				// outbound queue is saturated.
				s.metrics.WSWriteErrors.WithLabelValues("drop_full").Inc()
			}
			continue
		}

		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) runTurnLoop(ctx context.Context, sess *session.Session, inbound <-chan any, outbound chan<- any) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case protocol.ClientQuestion:
				result := s.runner.RunTurn(ctx, pipeline.TurnRequest{
					SessionID:  sess.ID,
					Question:   m.Text,
					Emotion:    m.Emotion,
					Confidence: m.Confidence,
					Age:        sess.Age,
				})
				_ = s.sessions.RecordTurn(sess.ID, result.Flagged)
				s.sendTurnResult(ctx, sess.ID, result, outbound)
			case protocol.ClientControl:
				if m.Action == "end" {
					if _, err := s.sessions.End(sess.ID); err == nil {
						s.memory.EndSession(sess.ID)
						s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
						s.metrics.SessionEvents.WithLabelValues("ended").Inc()
					}
					s.emit(ctx, outbound, protocol.SystemEvent{
						Type:      protocol.TypeSystemEvent,
						SessionID: sess.ID,
						Code:      "session_ended",
					})
					return
				}
			}
		}
	}
}

func (s *Server) sendTurnResult(ctx context.Context, sessionID string, result pipeline.TurnResult, outbound chan<- any) {
	switch result.State {
	case pipeline.StateBlocked:
		severity := result.InputVerdict.Severity
		if result.OutputVerdict.Severity > severity {
			severity = result.OutputVerdict.Severity
		}
		s.emit(ctx, outbound, protocol.AssistantBlocked{
			Type:      protocol.TypeAssistantBlocked,
			SessionID: sessionID,
			TurnID:    result.TurnID,
			Text:      result.Response,
			Severity:  severity.String(),
		})
	case pipeline.StateFailed:
		s.emit(ctx, outbound, protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      "turn_failed",
			Retryable: true,
			Detail:    result.Response,
		})
	default:
		s.emit(ctx, outbound, protocol.AssistantReply{
			Type:      protocol.TypeAssistantReply,
			SessionID: sessionID,
			TurnID:    result.TurnID,
			Text:      result.Response,
			Flagged:   result.Flagged,
		})
	}
}

func (s *Server) emit(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case <-ctx.Done():
	case outbound <- msg:
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientQuestion:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantReply:
		return m.Type, true
	case protocol.AssistantBlocked:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
