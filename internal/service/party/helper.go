package party

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/party"
)

// getConnsByPartyID collects the connections of every online member.
// Members without a live connection are skipped, not treated as errors.
func (s service) getConnsByPartyID(ctx context.Context, partyID string) ([]*websocket.Conn, error) {
	memberIDs, err := s.partyRepo.GetMemberIDs(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	conns := make([]*websocket.Conn, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		conn, err := s.connRepo.GetConn(memberID)
		if err != nil {
			s.logger.DebugContext(ctx, "member has no connection", "member_id", memberID)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s service) getMembers(ctx context.Context, partyID string) ([]Member, error) {
	memberIDs, err := s.partyRepo.GetMemberIDs(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]Member, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		member, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
			MemberID: memberID,
			PartyID:  partyID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		members = append(members, Member{
			ID:       memberID,
			Username: member.Username,
			IsCoHost: member.IsCoHost,
			IsOnline: member.IsOnline,
		})
	}

	return members, nil
}

// GetViewers reports the online members. The controller broadcasts it after
// every presence change.
func (s service) GetViewers(ctx context.Context, partyID string) (Viewers, error) {
	return s.getViewers(ctx, partyID)
}

func (s service) getViewers(ctx context.Context, partyID string) (Viewers, error) {
	members, err := s.getMembers(ctx, partyID)
	if err != nil {
		return Viewers{}, err
	}

	list := make([]Viewer, 0, len(members))
	for _, member := range members {
		if member.IsOnline {
			list = append(list, Viewer{User: member.Username})
		}
	}

	return Viewers{Count: len(list), List: list}, nil
}

func (s service) findMemberByUsername(ctx context.Context, partyID, username string) (string, party.Member, error) {
	memberIDs, err := s.partyRepo.GetMemberIDs(ctx, partyID)
	if err != nil {
		return "", party.Member{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, memberID := range memberIDs {
		member, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
			MemberID: memberID,
			PartyID:  partyID,
		})
		if err != nil {
			return "", party.Member{}, fmt.Errorf("failed to get member: %w", err)
		}

		if member.Username == username {
			return memberID, member, nil
		}
	}

	return "", party.Member{}, ErrMemberNotFound
}

// checkIfHost allows only the session host through. Session settings and
// membership mutations are host-only operations.
func (s service) checkIfHost(ctx context.Context, partyID, memberID string) error {
	session, err := s.partyRepo.GetSession(ctx, partyID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	member, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
		MemberID: memberID,
		PartyID:  partyID,
	})
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}

	if member.Username != session.HostName {
		return ErrPermissionDenied
	}

	return nil
}

// checkControlRights gates transport actions: the host and co-hosts always
// hold control, everyone else only when the session allows shared controls.
func (s service) checkControlRights(ctx context.Context, partyID, memberID string) error {
	session, err := s.partyRepo.GetSession(ctx, partyID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	member, err := s.partyRepo.GetMember(ctx, &party.GetMemberParams{
		MemberID: memberID,
		PartyID:  partyID,
	})
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}

	if member.Username == session.HostName || member.IsCoHost || session.AllowControls {
		return nil
	}

	return ErrPermissionDenied
}
