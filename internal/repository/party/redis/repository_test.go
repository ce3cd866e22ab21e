package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/party"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRepo(rc, 10*time.Minute)
}

func TestMessagesCapped(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := range messagesLimit + 50 {
		err := r.AddMessage(ctx, &party.AddMessageParams{
			PartyID: "p1",
			Message: party.Message{
				User: "alice",
				Text: fmt.Sprintf("msg %d", i),
			},
		})
		require.NoError(t, err)
	}

	messages, err := r.GetMessages(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, messages, messagesLimit)
	// oldest entries fell off; the newest survive in order
	assert.Equal(t, fmt.Sprintf("msg %d", 50), messages[0].Text)
	assert.Equal(t, fmt.Sprintf("msg %d", messagesLimit+49), messages[len(messages)-1].Text)
}

func TestUpdatePlayerStateLastWriteWins(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetPlayer(ctx, &party.SetPlayerParams{
		PartyID:     "p1",
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   1000,
	}))

	applied, err := r.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		PartyID:     "p1",
		IsPlaying:   true,
		CurrentTime: 200,
		UpdatedAt:   3000,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	// equal clock also loses: UpdatedAt must strictly increase
	applied, err = r.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		PartyID:     "p1",
		IsPlaying:   false,
		CurrentTime: 100,
		UpdatedAt:   3000,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = r.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		PartyID:     "p1",
		IsPlaying:   false,
		CurrentTime: 100,
		UpdatedAt:   2000,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	player, err := r.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, player.IsPlaying)
	assert.Equal(t, float64(200), player.CurrentTime)
	assert.Equal(t, int64(3000), player.UpdatedAt)

	_, err = r.UpdatePlayerState(ctx, &party.UpdatePlayerStateParams{
		PartyID:   "nope",
		UpdatedAt: 1,
	})
	assert.ErrorIs(t, err, party.ErrPlayerNotFound)
}

func TestMemberJoinOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, r.SetMember(ctx, &party.SetMemberParams{
			MemberID: id,
			PartyID:  "p1",
			Username: id,
		}))
	}

	ids, err := r.GetMemberIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)

	require.NoError(t, r.RemoveMember(ctx, &party.RemoveMemberParams{MemberID: "m2", PartyID: "p1"}))

	ids, err = r.GetMemberIDs(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m3"}, ids)

	err = r.RemoveMember(ctx, &party.RemoveMemberParams{MemberID: "m2", PartyID: "p1"})
	assert.ErrorIs(t, err, party.ErrMemberNotFound)
}

func TestAuthTokenLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetAuthToken(ctx, &party.SetAuthTokenParams{
		AuthToken: "tok",
		MemberID:  "m1",
	}))

	memberID, err := r.GetMemberIDByAuthToken(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "m1", memberID)

	require.NoError(t, r.RemoveAuthToken(ctx, "tok"))

	_, err = r.GetMemberIDByAuthToken(ctx, "tok")
	assert.ErrorIs(t, err, party.ErrTokenNotFound)
}
