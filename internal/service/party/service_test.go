package party

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/connection/inmemory"
	partyRedis "github.com/cinesync/server/internal/repository/party/redis"
)

func newTestService(t *testing.T, membersLimit int) *service {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	partyRepo := partyRedis.NewRepo(rc, 10*time.Minute)
	connRepo := inmemory.NewRepo()

	return NewService(partyRepo, connRepo, slog.Default(), &Config{
		Secret:          "test-secret",
		MembersLimit:    membersLimit,
		PartyCodeLength: 8,
	})
}

func TestCreatePartyAndJoin(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "movie night",
		HostName: "alice",
		Movie:    []byte(`{"id":"603","title":"The Matrix"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, createResp.PartyID)
	assert.NotEmpty(t, createResp.MemberID)
	assert.NotEmpty(t, createResp.AuthToken)
	assert.Len(t, createResp.PartyID, 8)

	err = s.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		PartyID:  createResp.PartyID,
		MemberID: createResp.MemberID,
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, joinResp.MemberID)
	assert.NotEmpty(t, joinResp.AuthToken)
	assert.Equal(t, "bob", joinResp.JoinedMember.Username)
	assert.False(t, joinResp.JoinedMember.IsCoHost)
	assert.Len(t, joinResp.Members, 2)
	assert.Len(t, joinResp.Conns, 1, "only the host is connected yet")

	err = s.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		PartyID:  createResp.PartyID,
		MemberID: joinResp.MemberID,
	})
	require.NoError(t, err)

	viewers, err := s.GetViewers(ctx, createResp.PartyID)
	require.NoError(t, err)
	assert.Equal(t, 2, viewers.Count)

	state, err := s.GetPartyState(ctx, createResp.PartyID)
	require.NoError(t, err)
	assert.Equal(t, "movie night", state.Name)
	assert.Equal(t, "alice", state.HostName)
	assert.True(t, state.Settings.AllowChat)
	assert.False(t, state.Settings.AllowControls)
	assert.False(t, state.Player.IsPlaying)
	assert.JSONEq(t, `{"id":"603","title":"The Matrix"}`, string(state.Movie))
}

func TestJoinPartyErrors(t *testing.T) {
	s := newTestService(t, 2)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:      "private",
		HostName:  "alice",
		IsPrivate: true,
		Password:  "hunter2",
	})
	require.NoError(t, err)

	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  "NOSUCHID",
		Username: "bob",
	})
	assert.ErrorIs(t, err, ErrPartyNotFound)

	// wrong password on an existing party must not look like a missing party
	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Password: "wrong",
		Username: "bob",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Password: "hunter2",
		Username: "alice",
	})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Password: "hunter2",
		Username: "bob",
	})
	require.NoError(t, err)

	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Password: "hunter2",
		Username: "carol",
	})
	assert.ErrorIs(t, err, ErrMembersLimitReached)
}

func TestPermissionMatrix(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "perm",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	allowChat := false
	_, err = s.UpdateSettings(ctx, &UpdateSettingsParams{
		SenderID:  joinResp.MemberID,
		PartyID:   createResp.PartyID,
		AllowChat: &allowChat,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "guest must not change settings")

	_, err = s.PromoteMember(ctx, &PromoteMemberParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "guest must not promote")

	_, err = s.KickMember(ctx, &KickMemberParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "alice",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "guest must not kick")

	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderID:    joinResp.MemberID,
		PartyID:     createResp.PartyID,
		IsPlaying:   true,
		CurrentTime: 10,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "controls are locked by default")

	promoteResp, err := s.PromoteMember(ctx, &PromoteMemberParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.True(t, promoteResp.Member.IsCoHost)

	// a co-host holds transport control even with shared controls off
	_, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderID:    joinResp.MemberID,
		PartyID:     createResp.PartyID,
		IsPlaying:   true,
		CurrentTime: 10,
	})
	require.NoError(t, err)

	_, err = s.PromoteMember(ctx, &PromoteMemberParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "promotion stays host-only")

	demoteResp, err := s.DemoteMember(ctx, &PromoteMemberParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.False(t, demoteResp.Member.IsCoHost)
}

func TestSharedControls(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "shared",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	allowControls := true
	_, err = s.UpdateSettings(ctx, &UpdateSettingsParams{
		SenderID:      createResp.MemberID,
		PartyID:       createResp.PartyID,
		AllowControls: &allowControls,
	})
	require.NoError(t, err)

	resp, err := s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderID:    joinResp.MemberID,
		PartyID:     createResp.PartyID,
		IsPlaying:   true,
		CurrentTime: 42.5,
	})
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	assert.True(t, resp.Player.IsPlaying)
	assert.Equal(t, 42.5, resp.Player.CurrentTime)
}

func TestPlayerStateLastWriteWins(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "lww",
		HostName: "alice",
	})
	require.NoError(t, err)

	base := time.Now().UnixMilli()

	resp, err := s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderID:    createResp.MemberID,
		PartyID:     createResp.PartyID,
		IsPlaying:   true,
		CurrentTime: 200,
		UpdatedAt:   base + 2000,
	})
	require.NoError(t, err)
	assert.True(t, resp.Applied)

	// a write carrying an older clock loses and must not be broadcast
	resp, err = s.UpdatePlayerState(ctx, &UpdatePlayerStateParams{
		SenderID:    createResp.MemberID,
		PartyID:     createResp.PartyID,
		IsPlaying:   false,
		CurrentTime: 100,
		UpdatedAt:   base + 1000,
	})
	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.Empty(t, resp.Conns)

	state, err := s.GetPartyState(ctx, createResp.PartyID)
	require.NoError(t, err)
	assert.True(t, state.Player.IsPlaying)
	assert.Equal(t, float64(200), state.Player.CurrentTime)
	assert.Equal(t, base+2000, state.Player.UpdatedAt)
}

func TestKickMember(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "kick",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	bobConn := &websocket.Conn{}
	err = s.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     bobConn,
		PartyID:  createResp.PartyID,
		MemberID: joinResp.MemberID,
	})
	require.NoError(t, err)

	kickResp, err := s.KickMember(ctx, &KickMemberParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, joinResp.MemberID, kickResp.KickedMemberID)
	assert.Same(t, bobConn, kickResp.KickedConn)
	assert.True(t, kickResp.Message.IsSystem)

	target, ok := DecodeKickCommand(kickResp.Message)
	require.True(t, ok)
	assert.Equal(t, "bob", target)

	// the eviction lands in chat history like any other message
	state, err := s.GetPartyState(ctx, createResp.PartyID)
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.True(t, state.Messages[0].IsSystem)

	_, err = s.KickMember(ctx, &KickMemberParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "alice",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "the host cannot be kicked")

	_, err = s.KickMember(ctx, &KickMemberParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Username: "nobody",
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestDecodeKickCommand(t *testing.T) {
	tests := []struct {
		name       string
		msg        Message
		wantTarget string
		wantOK     bool
	}{
		{
			name:       "kick command",
			msg:        Message{Text: "CMD:KICK:bob", IsSystem: true},
			wantTarget: "bob",
			wantOK:     true,
		},
		{
			name:   "plain chat with the prefix is not a command",
			msg:    Message{Text: "CMD:KICK:bob", IsSystem: false},
			wantOK: false,
		},
		{
			name:   "system message without the prefix",
			msg:    Message{Text: "alice joined", IsSystem: true},
			wantOK: false,
		},
		{
			name:   "empty target",
			msg:    Message{Text: "CMD:KICK:", IsSystem: true},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := DecodeKickCommand(tt.msg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTarget, target)
		})
	}
}

func TestSendMessage(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "chat",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	sendResp, err := s.SendMessage(ctx, &SendMessageParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
		Text:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", sendResp.Message.User)
	assert.Equal(t, "hello", sendResp.Message.Text)
	assert.False(t, sendResp.Message.IsSystem)
	assert.NotEmpty(t, sendResp.Message.Timestamp)

	allowChat := false
	_, err = s.UpdateSettings(ctx, &UpdateSettingsParams{
		SenderID:  createResp.MemberID,
		PartyID:   createResp.PartyID,
		AllowChat: &allowChat,
	})
	require.NoError(t, err)

	_, err = s.SendMessage(ctx, &SendMessageParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
		Text:     "muted",
	})
	assert.ErrorIs(t, err, ErrChatDisabled)

	// the host keeps talking through a muted room
	_, err = s.SendMessage(ctx, &SendMessageParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
		Text:     "announcement",
	})
	require.NoError(t, err)
}

func TestDisconnectMember(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "leave",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	err = s.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		PartyID:  createResp.PartyID,
		MemberID: createResp.MemberID,
	})
	require.NoError(t, err)
	err = s.ConnectMember(ctx, &ConnectMemberParams{
		Conn:     &websocket.Conn{},
		PartyID:  createResp.PartyID,
		MemberID: joinResp.MemberID,
	})
	require.NoError(t, err)

	// the host leaving does not tear the party down
	resp, err := s.DisconnectMember(ctx, &DisconnectMemberParams{
		PartyID:   createResp.PartyID,
		MemberID:  createResp.MemberID,
		AuthToken: createResp.AuthToken,
	})
	require.NoError(t, err)
	assert.False(t, resp.PartyDeleted)
	assert.Equal(t, 1, resp.Viewers.Count)

	_, err = s.GetMemberIDByAuthToken(ctx, createResp.AuthToken)
	assert.Error(t, err, "token must be revoked on disconnect")

	resp, err = s.DisconnectMember(ctx, &DisconnectMemberParams{
		PartyID:   createResp.PartyID,
		MemberID:  joinResp.MemberID,
		AuthToken: joinResp.AuthToken,
	})
	require.NoError(t, err)
	assert.True(t, resp.PartyDeleted)

	_, err = s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "carol",
	})
	assert.ErrorIs(t, err, ErrPartyNotFound)
}

func TestAuthTokenRoundTrip(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "auth",
		HostName: "alice",
	})
	require.NoError(t, err)

	memberID, err := s.GetMemberIDByAuthToken(ctx, createResp.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, createResp.MemberID, memberID)

	_, err = s.GetMemberIDByAuthToken(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestDestroyParty(t *testing.T) {
	s := newTestService(t, 9)
	ctx := context.Background()

	createResp, err := s.CreateParty(ctx, &CreatePartyParams{
		Name:     "destroy",
		HostName: "alice",
	})
	require.NoError(t, err)

	joinResp, err := s.JoinParty(ctx, &JoinPartyParams{
		PartyID:  createResp.PartyID,
		Username: "bob",
	})
	require.NoError(t, err)

	_, err = s.DestroyParty(ctx, &DestroyPartyParams{
		SenderID: joinResp.MemberID,
		PartyID:  createResp.PartyID,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = s.DestroyParty(ctx, &DestroyPartyParams{
		SenderID: createResp.MemberID,
		PartyID:  createResp.PartyID,
	})
	require.NoError(t, err)

	_, err = s.GetPartyState(ctx, createResp.PartyID)
	assert.Error(t, err)
}
