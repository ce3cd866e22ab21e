package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cinesync/server/internal/repository/party"
)

func (r repo) getAuthTokenKey(authToken string) string {
	return "auth-token:" + authToken
}

func (r repo) SetAuthToken(ctx context.Context, params *party.SetAuthTokenParams) error {
	if err := r.rc.Set(ctx, r.getAuthTokenKey(params.AuthToken), params.MemberID, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set auth token: %w", err)
	}

	return nil
}

func (r repo) GetMemberIDByAuthToken(ctx context.Context, authToken string) (string, error) {
	memberID, err := r.rc.Get(ctx, r.getAuthTokenKey(authToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", party.ErrTokenNotFound
		}

		return "", fmt.Errorf("failed to get auth token: %w", err)
	}

	return memberID, nil
}

func (r repo) RemoveAuthToken(ctx context.Context, authToken string) error {
	if err := r.rc.Del(ctx, r.getAuthTokenKey(authToken)).Err(); err != nil {
		return fmt.Errorf("failed to remove auth token: %w", err)
	}

	return nil
}
