// Package party implements watch-party sessions: membership, permissions,
// chat delivery and the shared player state that keeps participants in sync.
package party

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/party"
	"github.com/cinesync/server/pkg/randstr"
)

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrPartyNotFound       = errors.New("party not found")
	ErrWrongPassword       = errors.New("wrong password")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMembersLimitReached = errors.New("members limit reached")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrChatDisabled        = errors.New("chat is disabled")
)

type iPartyRepo interface {
	// session
	SetSession(context.Context, *party.SetSessionParams) error
	GetSession(context.Context, string) (party.Session, error)
	IsSessionExists(context.Context, string) (bool, error)
	UpdateSettings(context.Context, *party.UpdateSettingsParams) error
	UpdateMovie(ctx context.Context, partyID string, movie string) error
	RemoveSession(context.Context, string) error
	// member
	SetMember(context.Context, *party.SetMemberParams) error
	GetMember(context.Context, *party.GetMemberParams) (party.Member, error)
	GetMemberIDs(context.Context, string) ([]string, error)
	RemoveMember(context.Context, *party.RemoveMemberParams) error
	UpdateMemberIsCoHost(context.Context, *party.GetMemberParams, bool) error
	UpdateMemberIsOnline(context.Context, *party.GetMemberParams, bool) error
	RemoveMemberList(context.Context, string) error
	// player
	SetPlayer(context.Context, *party.SetPlayerParams) error
	GetPlayer(context.Context, string) (party.Player, error)
	UpdatePlayerState(context.Context, *party.UpdatePlayerStateParams) (bool, error)
	RemovePlayer(context.Context, string) error
	// chat
	AddMessage(context.Context, *party.AddMessageParams) error
	GetMessages(context.Context, string) ([]party.Message, error)
	RemoveMessages(context.Context, string) error
	// auth token
	SetAuthToken(context.Context, *party.SetAuthTokenParams) error
	GetMemberIDByAuthToken(context.Context, string) (string, error)
	RemoveAuthToken(context.Context, string) error
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByMemberID(string) (*websocket.Conn, error)
	RemoveByConn(*websocket.Conn) error
	GetConn(string) (*websocket.Conn, error)
	GetMemberID(*websocket.Conn) (string, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	Secret          string
	MembersLimit    int
	PartyCodeLength int
}

type service struct {
	partyRepo iPartyRepo
	connRepo  iConnRepo
	generator iGenerator
	logger    *slog.Logger

	secret          string
	membersLimit    int
	partyCodeLength int
}

func NewService(partyRepo iPartyRepo, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *service {
	s := service{
		partyRepo:       partyRepo,
		connRepo:        connRepo,
		logger:          logger,
		secret:          cfg.Secret,
		membersLimit:    cfg.MembersLimit,
		partyCodeLength: cfg.PartyCodeLength,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	s.generator = randstr.New(letterBytes)

	return &s
}
