package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinesync/server/internal/service/party"
	"github.com/cinesync/server/pkg/rest"
)

func (c controller) createParty(w http.ResponseWriter, r *http.Request) {
	name, err := c.getQueryParam(r, "name")
	if err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}

	username, err := c.getQueryParam(r, "username")
	if err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}

	isPrivate := r.URL.Query().Get("private") == "true"
	password := r.URL.Query().Get("password")

	createResp, err := c.partyService.CreateParty(r.Context(), &party.CreatePartyParams{
		Name:      name,
		HostName:  username,
		IsPrivate: isPrivate,
		Password:  password,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to create party", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}
	defer c.disconnect(r.Context(), createResp.PartyID, createResp.MemberID, createResp.AuthToken)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	if err := c.partyService.ConnectMember(r.Context(), &party.ConnectMemberParams{
		Conn:     conn,
		PartyID:  createResp.PartyID,
		MemberID: createResp.MemberID,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect member", "error", err)
		return
	}

	partyState, err := c.partyService.GetPartyState(r.Context(), createResp.PartyID)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get party state", "error", err)
		return
	}

	if err := conn.WriteJSON(&Output{
		Type: "JOINED_PARTY",
		Payload: map[string]any{
			"auth_token":  createResp.AuthToken,
			"party_state": partyState,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write json", "error", err)
		return
	}

	ctx := context.WithValue(r.Context(), partyIdCtxKey, createResp.PartyID)
	ctx = context.WithValue(ctx, memberIdCtxKey, createResp.MemberID)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(r.Context(), "failed to serve conn", "error", err)
		return
	}
}

func (c controller) joinParty(w http.ResponseWriter, r *http.Request) {
	partyID := chi.URLParam(r, "party-id")
	if partyID == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "party id was not provided"})
		return
	}

	username, err := c.getQueryParam(r, "username")
	if err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": err.Error()})
		return
	}

	password := r.URL.Query().Get("password")

	joinResp, err := c.partyService.JoinParty(r.Context(), &party.JoinPartyParams{
		PartyID:  partyID,
		Password: password,
		Username: username,
	})
	if err != nil {
		c.writeJoinError(w, r, err)
		return
	}
	defer c.disconnect(r.Context(), partyID, joinResp.MemberID, joinResp.AuthToken)

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	if err := c.partyService.ConnectMember(r.Context(), &party.ConnectMemberParams{
		Conn:     conn,
		PartyID:  partyID,
		MemberID: joinResp.MemberID,
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect member", "error", err)
		return
	}

	partyState, err := c.partyService.GetPartyState(r.Context(), partyID)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get party state", "error", err)
		return
	}

	if err := conn.WriteJSON(&Output{
		Type: "JOINED_PARTY",
		Payload: map[string]any{
			"auth_token":  joinResp.AuthToken,
			"party_state": partyState,
		},
	}); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write json", "error", err)
		return
	}

	viewers, err := c.partyService.GetViewers(r.Context(), partyID)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get viewers", "error", err)
		return
	}

	if err := c.broadcastViewersUpdated(r.Context(), joinResp.Conns, viewers); err != nil {
		c.logger.WarnContext(r.Context(), "failed to broadcast", "error", err)
		return
	}

	ctx := context.WithValue(r.Context(), partyIdCtxKey, partyID)
	ctx = context.WithValue(ctx, memberIdCtxKey, joinResp.MemberID)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(r.Context(), "failed to serve conn", "error", err)
		return
	}
}

func (c controller) writeJoinError(w http.ResponseWriter, r *http.Request, err error) {
	c.logger.DebugContext(r.Context(), "failed to join party", "error", err)

	switch {
	case errors.Is(err, party.ErrPartyNotFound):
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": err.Error()})
	case errors.Is(err, party.ErrWrongPassword):
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": err.Error()})
	case errors.Is(err, party.ErrUsernameTaken), errors.Is(err, party.ErrMembersLimitReached):
		rest.WriteJSON(w, http.StatusConflict, rest.Envelope{"error": err.Error()})
	default:
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
	}
}

// disconnect runs when a member's websocket handler returns. Presence is
// broadcast to whoever is left; the last member leaving deletes the party.
func (c controller) disconnect(ctx context.Context, partyID, memberID, authToken string) {
	resp, err := c.partyService.DisconnectMember(ctx, &party.DisconnectMemberParams{
		PartyID:   partyID,
		MemberID:  memberID,
		AuthToken: authToken,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to disconnect member", "error", err)
		return
	}

	if resp.PartyDeleted {
		return
	}

	if err := c.broadcastViewersUpdated(ctx, resp.Conns, resp.Viewers); err != nil {
		c.logger.InfoContext(ctx, "failed to broadcast", "error", err)
	}
}
