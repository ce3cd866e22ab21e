package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc              *redis.Client
	expireDuration  time.Duration
	nextScoreScript string
	lwwPlayerScript string
}

func NewRepo(rc *redis.Client, expireDuration time.Duration) *repo {
	return &repo{
		rc:              rc,
		expireDuration:  expireDuration,
		nextScoreScript: rc.ScriptLoad(context.Background(), `
			local maxScore = redis.call('ZREVRANGE', KEYS[1], 0, 0, 'WITHSCORES')
			local nextScore = 1
			if #maxScore > 0 then
				nextScore = tonumber(maxScore[2]) + 1
			end
			redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
			return nextScore
		`).Val(),
		// last-write-wins on the updated_at logical clock: a stale write is
		// dropped atomically instead of racing the current one
		lwwPlayerScript: rc.ScriptLoad(context.Background(), `
			local current = redis.call('HGET', KEYS[1], 'updated_at')
			if current and tonumber(current) >= tonumber(ARGV[3]) then
				return 0
			end
			redis.call('HSET', KEYS[1], 'is_playing', ARGV[1], 'current_time', ARGV[2], 'updated_at', ARGV[3])
			return 1
		`).Val(),
	}
}
