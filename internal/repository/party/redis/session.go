package redis

import (
	"context"
	"fmt"

	"github.com/cinesync/server/internal/repository/party"
)

func (r repo) getSessionKey(partyID string) string {
	return "party:" + partyID + ":session"
}

func (r repo) SetSession(ctx context.Context, params *party.SetSessionParams) error {
	pipe := r.rc.TxPipeline()

	session := party.Session{
		Name:          params.Name,
		HostName:      params.HostName,
		IsPrivate:     params.IsPrivate,
		Password:      params.Password,
		AllowChat:     params.AllowChat,
		AllowControls: params.AllowControls,
		Season:        params.Season,
		Episode:       params.Episode,
		Movie:         params.Movie,
		CreatedAt:     params.CreatedAt,
	}
	sessionKey := r.getSessionKey(params.PartyID)
	pipe.HSet(ctx, sessionKey, session)
	pipe.Expire(ctx, sessionKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (r repo) IsSessionExists(ctx context.Context, partyID string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getSessionKey(partyID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if session exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) GetSession(ctx context.Context, partyID string) (party.Session, error) {
	sessionKey := r.getSessionKey(partyID)

	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return party.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if cmd.Val() == 0 {
		return party.Session{}, party.ErrPartyNotFound
	}

	var session party.Session
	if err := r.rc.HGetAll(ctx, sessionKey).Scan(&session); err != nil {
		return party.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return session, nil
}

func (r repo) UpdateSettings(ctx context.Context, params *party.UpdateSettingsParams) error {
	sessionKey := r.getSessionKey(params.PartyID)

	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return party.ErrPartyNotFound
	}

	fields := make([]interface{}, 0, 8)
	if params.AllowChat != nil {
		fields = append(fields, "allow_chat", *params.AllowChat)
	}
	if params.AllowControls != nil {
		fields = append(fields, "allow_controls", *params.AllowControls)
	}
	if params.Season != nil {
		fields = append(fields, "season", *params.Season)
	}
	if params.Episode != nil {
		fields = append(fields, "episode", *params.Episode)
	}

	if len(fields) == 0 {
		return nil
	}

	if err := r.rc.HSet(ctx, sessionKey, fields...).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return nil
}

func (r repo) UpdateMovie(ctx context.Context, partyID string, movie string) error {
	sessionKey := r.getSessionKey(partyID)

	cmd := r.rc.Exists(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return party.ErrPartyNotFound
	}

	if err := r.rc.HSet(ctx, sessionKey, "movie", movie).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return nil
}

func (r repo) RemoveSession(ctx context.Context, partyID string) error {
	res, err := r.rc.Del(ctx, r.getSessionKey(partyID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	if res == 0 {
		return party.ErrPartyNotFound
	}

	return nil
}
