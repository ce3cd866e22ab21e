package party

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/party"
)

type UpdatePlayerStateParams struct {
	SenderID    string
	PartyID     string
	IsPlaying   bool
	CurrentTime float64
	UpdatedAt   int64
}

type UpdatePlayerStateResponse struct {
	// Applied is false when a newer write already holds the player state.
	// Stale writes are dropped without a broadcast.
	Applied bool
	Player  PlayerState
	Conns   []*websocket.Conn
}

func (s service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerStateResponse, error) {
	if err := s.checkControlRights(ctx, params.PartyID, params.SenderID); err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	updatedAt := params.UpdatedAt
	if updatedAt == 0 {
		updatedAt = time.Now().UnixMilli()
	}

	applied, err := s.partyRepo.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		PartyID:     params.PartyID,
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   updatedAt,
	})
	if err != nil {
		return UpdatePlayerStateResponse{}, fmt.Errorf("failed to update player state: %w", err)
	}

	if !applied {
		return UpdatePlayerStateResponse{}, nil
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	return UpdatePlayerStateResponse{
		Applied: true,
		Player: PlayerState{
			IsPlaying:   params.IsPlaying,
			CurrentTime: params.CurrentTime,
			UpdatedAt:   updatedAt,
		},
		Conns: conns,
	}, nil
}
