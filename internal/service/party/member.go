package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/connection"
	"github.com/cinesync/server/internal/repository/party"
)

type ConnectMemberParams struct {
	Conn     *websocket.Conn
	PartyID  string
	MemberID string
}

func (s service) ConnectMember(ctx context.Context, params *ConnectMemberParams) error {
	if err := s.connRepo.Add(params.Conn, params.MemberID); err != nil {
		if errors.Is(err, connection.ErrAlreadyExists) {
			return err
		}

		return fmt.Errorf("failed to add connection: %w", err)
	}

	if err := s.partyRepo.UpdateMemberIsOnline(ctx, &party.GetMemberParams{
		MemberID: params.MemberID,
		PartyID:  params.PartyID,
	}, true); err != nil {
		return fmt.Errorf("failed to update member is online: %w", err)
	}

	return nil
}

type DisconnectMemberParams struct {
	PartyID   string
	MemberID  string
	AuthToken string
}

type DisconnectMemberResponse struct {
	PartyDeleted bool
	Viewers      Viewers
	Conns        []*websocket.Conn
}

// DisconnectMember removes the member and revokes their token. A host
// leaving does not destroy the party; the remaining members keep watching
// and the session expires on its own once everyone is gone.
func (s service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	s.connRepo.RemoveByMemberID(params.MemberID)

	if err := s.partyRepo.RemoveMember(ctx, &party.RemoveMemberParams{
		MemberID: params.MemberID,
		PartyID:  params.PartyID,
	}); err != nil {
		return DisconnectMemberResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	if params.AuthToken != "" {
		if err := s.partyRepo.RemoveAuthToken(ctx, params.AuthToken); err != nil {
			s.logger.InfoContext(ctx, "failed to remove auth token", "error", err)
		}
	}

	memberIDs, err := s.partyRepo.GetMemberIDs(ctx, params.PartyID)
	if err != nil {
		return DisconnectMemberResponse{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	if len(memberIDs) == 0 {
		if err := s.deleteParty(ctx, params.PartyID); err != nil {
			return DisconnectMemberResponse{}, err
		}

		return DisconnectMemberResponse{PartyDeleted: true}, nil
	}

	viewers, err := s.getViewers(ctx, params.PartyID)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	return DisconnectMemberResponse{
		Viewers: viewers,
		Conns:   conns,
	}, nil
}

type KickMemberParams struct {
	SenderID string
	PartyID  string
	Username string
}

type KickMemberResponse struct {
	KickedMemberID string
	KickedConn     *websocket.Conn
	Message        Message
	Conns          []*websocket.Conn
}

// KickMember records the eviction as a system chat message and returns the
// victim's connection so the controller can close it. Clients must decode
// the sentinel rather than render it: only the named target acts on it,
// everyone else suppresses it. The sentinel stays in the capped history, so
// late joiners replay it through the same decode path.
func (s service) KickMember(ctx context.Context, params *KickMemberParams) (KickMemberResponse, error) {
	session, err := s.partyRepo.GetSession(ctx, params.PartyID)
	if err != nil {
		if errors.Is(err, party.ErrPartyNotFound) {
			return KickMemberResponse{}, ErrPartyNotFound
		}

		return KickMemberResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	sender, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
		MemberID: params.SenderID,
		PartyID:  params.PartyID,
	})
	if err != nil {
		return KickMemberResponse{}, fmt.Errorf("failed to get member: %w", err)
	}

	if sender.Username != session.HostName && !sender.IsCoHost {
		return KickMemberResponse{}, ErrPermissionDenied
	}

	if params.Username == session.HostName {
		return KickMemberResponse{}, ErrPermissionDenied
	}

	kickedMemberID, _, err := s.findMemberByUsername(ctx, params.PartyID, params.Username)
	if err != nil {
		return KickMemberResponse{}, err
	}

	msg := Message{
		User:      sender.Username,
		Text:      EncodeKickCommand(params.Username),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		IsSystem:  true,
	}

	if err := s.partyRepo.AddMessage(ctx, &party.AddMessageParams{
		PartyID: params.PartyID,
		Message: party.Message{
			User:      msg.User,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
			IsSystem:  msg.IsSystem,
		},
	}); err != nil {
		return KickMemberResponse{}, fmt.Errorf("failed to add message: %w", err)
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return KickMemberResponse{}, err
	}

	kickedConn, err := s.connRepo.GetConn(kickedMemberID)
	if err != nil {
		kickedConn = nil
	}

	return KickMemberResponse{
		KickedMemberID: kickedMemberID,
		KickedConn:     kickedConn,
		Message:        msg,
		Conns:          conns,
	}, nil
}

type PromoteMemberParams struct {
	SenderID string
	PartyID  string
	Username string
}

type PromoteMemberResponse struct {
	Member Member
	Conns  []*websocket.Conn
}

func (s service) PromoteMember(ctx context.Context, params *PromoteMemberParams) (PromoteMemberResponse, error) {
	return s.setCoHost(ctx, params.SenderID, params.PartyID, params.Username, true)
}

func (s service) DemoteMember(ctx context.Context, params *PromoteMemberParams) (PromoteMemberResponse, error) {
	return s.setCoHost(ctx, params.SenderID, params.PartyID, params.Username, false)
}

func (s service) setCoHost(ctx context.Context, senderID, partyID, username string, isCoHost bool) (PromoteMemberResponse, error) {
	if err := s.checkIfHost(ctx, partyID, senderID); err != nil {
		return PromoteMemberResponse{}, err
	}

	memberID, member, err := s.findMemberByUsername(ctx, partyID, username)
	if err != nil {
		return PromoteMemberResponse{}, err
	}

	if err := s.partyRepo.UpdateMemberIsCoHost(ctx, &party.GetMemberParams{
		MemberID: memberID,
		PartyID:  partyID,
	}, isCoHost); err != nil {
		return PromoteMemberResponse{}, fmt.Errorf("failed to update member is co host: %w", err)
	}

	conns, err := s.getConnsByPartyID(ctx, partyID)
	if err != nil {
		return PromoteMemberResponse{}, err
	}

	return PromoteMemberResponse{
		Member: Member{
			ID:       memberID,
			Username: member.Username,
			IsCoHost: isCoHost,
			IsOnline: member.IsOnline,
		},
		Conns: conns,
	}, nil
}

// GetMemberIDByAuthToken maps a bearer token back to its member, verifying
// the signature before touching storage.
func (s service) GetMemberIDByAuthToken(ctx context.Context, authToken string) (string, error) {
	claimedMemberID, err := s.parseAuthToken(authToken)
	if err != nil {
		return "", party.ErrTokenNotFound
	}

	memberID, err := s.partyRepo.GetMemberIDByAuthToken(ctx, authToken)
	if err != nil {
		return "", err
	}

	if memberID != claimedMemberID {
		return "", party.ErrTokenNotFound
	}

	return memberID, nil
}
