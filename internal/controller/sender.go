package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/party"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *Output) error {
	if conn == nil {
		return nil
	}

	return conn.WriteJSON(output)
}

func (c controller) broadcast(ctx context.Context, conns []*websocket.Conn, output *Output) error {
	for _, conn := range conns {
		if err := conn.WriteJSON(output); err != nil {
			c.logger.InfoContext(ctx, "failed to write to conn", "error", err)
		}
	}

	return nil
}

func (c controller) broadcastViewersUpdated(ctx context.Context, conns []*websocket.Conn, viewers party.Viewers) error {
	return c.broadcast(ctx, conns, &Output{
		Type:    "VIEWERS_UPDATED",
		Payload: viewers,
	})
}

func (c controller) broadcastMessage(ctx context.Context, conns []*websocket.Conn, msg party.Message) error {
	return c.broadcast(ctx, conns, &Output{
		Type:    "MESSAGE",
		Payload: msg,
	})
}

// handleWSError reports a handler failure back over the connection. Expected
// domain failures go out as-is; anything else is masked as an internal error.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.InfoContext(ctx, "failed to handle websocket message", "error", err)

	message := "internal error"
	for _, known := range []error{
		party.ErrPermissionDenied,
		party.ErrPartyNotFound,
		party.ErrMemberNotFound,
		party.ErrChatDisabled,
		ErrValidationError,
	} {
		if errors.Is(err, known) {
			message = known.Error()
			break
		}
	}

	if err := conn.WriteJSON(&Output{
		Type: "ERROR",
		Payload: map[string]any{
			"message": message,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to write to conn", "error", err)
	}
}
