package redis

import (
	"context"
	"fmt"

	"github.com/cinesync/server/internal/repository/party"
)

func (r repo) getMemberKey(partyID, memberID string) string {
	return "party:" + partyID + ":member:" + memberID
}

func (r repo) getMemberListKey(partyID string) string {
	return "party:" + partyID + ":members"
}

func (r repo) SetMember(ctx context.Context, params *party.SetMemberParams) error {
	pipe := r.rc.TxPipeline()

	member := party.Member{
		Username: params.Username,
		IsCoHost: params.IsCoHost,
		IsOnline: params.IsOnline,
	}
	memberKey := r.getMemberKey(params.PartyID, params.MemberID)
	pipe.HSet(ctx, memberKey, member)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	memberListKey := r.getMemberListKey(params.PartyID)
	r.addWithIncrement(ctx, pipe, memberListKey, params.MemberID)
	pipe.Expire(ctx, memberListKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set member: %w", err)
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, params *party.GetMemberParams) (party.Member, error) {
	memberKey := r.getMemberKey(params.PartyID, params.MemberID)

	cmd := r.rc.Exists(ctx, memberKey)
	if err := cmd.Err(); err != nil {
		return party.Member{}, fmt.Errorf("failed to get member: %w", err)
	}
	if cmd.Val() == 0 {
		return party.Member{}, party.ErrMemberNotFound
	}

	var member party.Member
	if err := r.rc.HGetAll(ctx, memberKey).Scan(&member); err != nil {
		return party.Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	r.rc.Expire(ctx, memberKey, r.expireDuration)

	return member, nil
}

func (r repo) GetMemberIDs(ctx context.Context, partyID string) ([]string, error) {
	memberIDs, err := r.rc.ZRange(ctx, r.getMemberListKey(partyID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return memberIDs, nil
}

func (r repo) RemoveMember(ctx context.Context, params *party.RemoveMemberParams) error {
	res, err := r.rc.ZRem(ctx, r.getMemberListKey(params.PartyID), params.MemberID).Result()
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if res == 0 {
		return party.ErrMemberNotFound
	}

	if err := r.rc.Del(ctx, r.getMemberKey(params.PartyID, params.MemberID)).Err(); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

func (r repo) UpdateMemberIsCoHost(ctx context.Context, params *party.GetMemberParams, isCoHost bool) error {
	memberKey := r.getMemberKey(params.PartyID, params.MemberID)

	cmd := r.rc.Exists(ctx, memberKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return party.ErrMemberNotFound
	}

	if err := r.rc.HSet(ctx, memberKey, "is_co_host", isCoHost).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, memberKey, r.expireDuration)

	return nil
}

func (r repo) UpdateMemberIsOnline(ctx context.Context, params *party.GetMemberParams, isOnline bool) error {
	memberKey := r.getMemberKey(params.PartyID, params.MemberID)

	cmd := r.rc.Exists(ctx, memberKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return party.ErrMemberNotFound
	}

	if err := r.rc.HSet(ctx, memberKey, "is_online", isOnline).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, memberKey, r.expireDuration)

	return nil
}

func (r repo) RemoveMemberList(ctx context.Context, partyID string) error {
	if err := r.rc.Del(ctx, r.getMemberListKey(partyID)).Err(); err != nil {
		return fmt.Errorf("failed to remove member list: %w", err)
	}

	return nil
}
