package redis

import (
	"context"
	"fmt"

	"github.com/cinesync/server/internal/repository/party"
)

func (r repo) getPlayerKey(partyID string) string {
	return "party:" + partyID + ":player"
}

func (r repo) SetPlayer(ctx context.Context, params *party.SetPlayerParams) error {
	pipe := r.rc.TxPipeline()

	player := party.Player{
		IsPlaying:   params.IsPlaying,
		CurrentTime: params.CurrentTime,
		UpdatedAt:   params.UpdatedAt,
	}
	playerKey := r.getPlayerKey(params.PartyID)
	pipe.HSet(ctx, playerKey, player)
	pipe.Expire(ctx, playerKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (r repo) GetPlayer(ctx context.Context, partyID string) (party.Player, error) {
	playerKey := r.getPlayerKey(partyID)

	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return party.Player{}, fmt.Errorf("failed to get player: %w", err)
	}
	if cmd.Val() == 0 {
		return party.Player{}, party.ErrPlayerNotFound
	}

	var player party.Player
	if err := r.rc.HGetAll(ctx, playerKey).Scan(&player); err != nil {
		return party.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return player, nil
}

// UpdatePlayerState applies a state write under last-write-wins on the
// updated_at logical clock. It reports whether the write was applied; a
// stale write is not an error.
func (r repo) UpdatePlayerState(ctx context.Context, params *party.UpdatePlayerStateParams) (bool, error) {
	playerKey := r.getPlayerKey(params.PartyID)

	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	if cmd.Val() == 0 {
		return false, party.ErrPlayerNotFound
	}

	res, err := r.rc.EvalSha(ctx, r.lwwPlayerScript,
		[]string{playerKey},
		params.IsPlaying, params.CurrentTime, params.UpdatedAt,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to update player state: %w", err)
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return res == 1, nil
}

func (r repo) RemovePlayer(ctx context.Context, partyID string) error {
	res, err := r.rc.Del(ctx, r.getPlayerKey(partyID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}

	if res == 0 {
		return party.ErrPlayerNotFound
	}

	return nil
}
