package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/party"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

type SendMessageInput struct {
	Text string `json:"text"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	if input.Text == "" {
		return fmt.Errorf("empty text: %w", ErrValidationError)
	}

	sendMessageResp, err := c.partyService.SendMessage(ctx, &party.SendMessageParams{
		SenderID: memberId,
		PartyID:  partyId,
		Text:     input.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	if err := c.broadcastMessage(ctx, sendMessageResp.Conns, sendMessageResp.Message); err != nil {
		return fmt.Errorf("failed to broadcast message: %w", err)
	}

	return nil
}

type UpdatePlayerStateInput struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (c controller) handleUpdatePlayerState(ctx context.Context, _ *websocket.Conn, input UpdatePlayerStateInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	updatePlayerStateResp, err := c.partyService.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		SenderID:    memberId,
		PartyID:     partyId,
		IsPlaying:   input.IsPlaying,
		CurrentTime: input.CurrentTime,
		UpdatedAt:   input.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to update player state: %w", err)
	}

	// a stale write lost to a newer one; nothing to tell anyone
	if !updatePlayerStateResp.Applied {
		return nil
	}

	if err := c.broadcast(ctx, updatePlayerStateResp.Conns, &Output{
		Type:    "PLAYER_STATE_UPDATED",
		Payload: updatePlayerStateResp.Player,
	}); err != nil {
		return fmt.Errorf("failed to broadcast player state updated: %w", err)
	}

	return nil
}

type UpdateSettingsInput struct {
	AllowChat     *bool `json:"allow_chat"`
	AllowControls *bool `json:"allow_controls"`
	Season        *int  `json:"season"`
	Episode       *int  `json:"episode"`
}

func (c controller) handleUpdateSettings(ctx context.Context, _ *websocket.Conn, input UpdateSettingsInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	if input.AllowChat == nil && input.AllowControls == nil && input.Season == nil && input.Episode == nil {
		return fmt.Errorf("no settings provided: %w", ErrValidationError)
	}

	updateSettingsResp, err := c.partyService.UpdateSettings(ctx, &party.UpdateSettingsParams{
		SenderID:      memberId,
		PartyID:       partyId,
		AllowChat:     input.AllowChat,
		AllowControls: input.AllowControls,
		Season:        input.Season,
		Episode:       input.Episode,
	})
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	if err := c.broadcast(ctx, updateSettingsResp.Conns, &Output{
		Type:    "SETTINGS_UPDATED",
		Payload: updateSettingsResp.Settings,
	}); err != nil {
		return fmt.Errorf("failed to broadcast settings updated: %w", err)
	}

	return nil
}

type KickMemberInput struct {
	Username string `json:"username"`
}

func (c controller) handleKickMember(ctx context.Context, _ *websocket.Conn, input KickMemberInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	if input.Username == "" {
		return fmt.Errorf("empty username: %w", ErrValidationError)
	}

	kickMemberResp, err := c.partyService.KickMember(ctx, &party.KickMemberParams{
		SenderID: memberId,
		PartyID:  partyId,
		Username: input.Username,
	})
	if err != nil {
		return fmt.Errorf("failed to kick member: %w", err)
	}

	// the eviction travels as a system chat message; every client decides
	// locally whether it is the target
	if err := c.broadcastMessage(ctx, kickMemberResp.Conns, kickMemberResp.Message); err != nil {
		return fmt.Errorf("failed to broadcast message: %w", err)
	}

	if kickMemberResp.KickedConn != nil {
		kickMemberResp.KickedConn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(4001, "kicked"), time.Now().Add(5*time.Second))
	}

	return nil
}

type PromoteMemberInput struct {
	Username string `json:"username"`
}

func (c controller) handlePromoteMember(ctx context.Context, _ *websocket.Conn, input PromoteMemberInput) error {
	return c.setCoHost(ctx, input.Username, true)
}

func (c controller) handleDemoteMember(ctx context.Context, _ *websocket.Conn, input PromoteMemberInput) error {
	return c.setCoHost(ctx, input.Username, false)
}

func (c controller) setCoHost(ctx context.Context, username string, promote bool) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	if username == "" {
		return fmt.Errorf("empty username: %w", ErrValidationError)
	}

	params := party.PromoteMemberParams{
		SenderID: memberId,
		PartyID:  partyId,
		Username: username,
	}

	var resp party.PromoteMemberResponse
	var err error
	if promote {
		resp, err = c.partyService.PromoteMember(ctx, &params)
	} else {
		resp, err = c.partyService.DemoteMember(ctx, &params)
	}
	if err != nil {
		return fmt.Errorf("failed to update co-host: %w", err)
	}

	if err := c.broadcast(ctx, resp.Conns, &Output{
		Type:    "MEMBER_PROMOTED",
		Payload: resp.Member,
	}); err != nil {
		return fmt.Errorf("failed to broadcast member promoted: %w", err)
	}

	return nil
}

type SetMovieInput struct {
	Movie json.RawMessage `json:"movie"`
}

func (c controller) handleSetMovie(ctx context.Context, _ *websocket.Conn, input SetMovieInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	if len(input.Movie) == 0 {
		return fmt.Errorf("empty movie: %w", ErrValidationError)
	}

	setMovieResp, err := c.partyService.SetMovie(ctx, &party.SetMovieParams{
		SenderID: memberId,
		PartyID:  partyId,
		Movie:    input.Movie,
	})
	if err != nil {
		return fmt.Errorf("failed to set movie: %w", err)
	}

	if err := c.broadcast(ctx, setMovieResp.Conns, &Output{
		Type: "MOVIE_UPDATED",
		Payload: map[string]any{
			"movie": setMovieResp.Movie,
		},
	}); err != nil {
		return fmt.Errorf("failed to broadcast movie updated: %w", err)
	}

	return nil
}

func (c controller) handleDestroyParty(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	partyId := c.getPartyIdFromCtx(ctx)
	memberId := c.getMemberIdFromCtx(ctx)

	destroyResp, err := c.partyService.DestroyParty(ctx, &party.DestroyPartyParams{
		SenderID: memberId,
		PartyID:  partyId,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy party: %w", err)
	}

	if err := c.broadcast(ctx, destroyResp.Conns, &Output{
		Type: "PARTY_DESTROYED",
	}); err != nil {
		return fmt.Errorf("failed to broadcast party destroyed: %w", err)
	}

	for _, conn := range destroyResp.Conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "party destroyed"), time.Now().Add(5*time.Second))
	}

	return nil
}
