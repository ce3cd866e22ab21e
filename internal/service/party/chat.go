package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/party"
)

type SendMessageParams struct {
	SenderID string
	PartyID  string
	Text     string
}

type SendMessageResponse struct {
	Message Message
	Conns   []*websocket.Conn
}

// SendMessage appends a chat message and returns the connections to fan it
// out to. When chat is disabled only the host may still speak.
func (s service) SendMessage(ctx context.Context, params *SendMessageParams) (SendMessageResponse, error) {
	session, err := s.partyRepo.GetSession(ctx, params.PartyID)
	if err != nil {
		if errors.Is(err, party.ErrPartyNotFound) {
			return SendMessageResponse{}, ErrPartyNotFound
		}

		return SendMessageResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	sender, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
		MemberID: params.SenderID,
		PartyID:  params.PartyID,
	})
	if err != nil {
		return SendMessageResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	if !session.AllowChat && sender.Username != session.HostName {
		return SendMessageResponse{}, ErrChatDisabled
	}

	msg := Message{
		User:      sender.Username,
		Text:      params.Text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.partyRepo.AddMessage(ctx, &party.AddMessageParams{
		PartyID: params.PartyID,
		Message: party.Message{
			User:      msg.User,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		},
	}); err != nil {
		return SendMessageResponse{}, fmt.Errorf("failed to add message: %w", err)
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return SendMessageResponse{}, err
	}

	return SendMessageResponse{Message: msg, Conns: conns}, nil
}
