package party

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/party"
)

type CreatePartyParams struct {
	Name      string
	IsPrivate bool
	Password  string
	HostName  string
	Movie     json.RawMessage
	Season    int
	Episode   int
}

type CreatePartyResponse struct {
	PartyID   string
	MemberID  string
	AuthToken string
}

func (s service) CreateParty(ctx context.Context, params *CreatePartyParams) (CreatePartyResponse, error) {
	partyID, err := s.generatePartyID(ctx)
	if err != nil {
		return CreatePartyResponse{}, err
	}

	if err := s.partyRepo.SetSession(ctx, &party.SetSessionParams{
		PartyID:       partyID,
		Name:          params.Name,
		HostName:      params.HostName,
		IsPrivate:     params.IsPrivate,
		Password:      params.Password,
		AllowChat:     true,
		AllowControls: false,
		Season:        params.Season,
		Episode:       params.Episode,
		Movie:         string(params.Movie),
		CreatedAt:     time.Now().Unix(),
	}); err != nil {
		return CreatePartyResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	memberID := uuid.NewString()
	if err := s.partyRepo.SetMember(ctx, &party.SetMemberParams{
		MemberID: memberID,
		PartyID:  partyID,
		Username: params.HostName,
		IsCoHost: false,
		IsOnline: false,
	}); err != nil {
		return CreatePartyResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	if err := s.partyRepo.SetPlayer(ctx, &party.SetPlayerParams{
		PartyID:     partyID,
		IsPlaying:   false,
		CurrentTime: 0,
		UpdatedAt:   time.Now().UnixMilli(),
	}); err != nil {
		return CreatePartyResponse{}, fmt.Errorf("failed to set player: %w", err)
	}

	authToken, err := s.issueAuthToken(ctx, memberID)
	if err != nil {
		return CreatePartyResponse{}, err
	}

	return CreatePartyResponse{
		PartyID:   partyID,
		MemberID:  memberID,
		AuthToken: authToken,
	}, nil
}

type JoinPartyParams struct {
	PartyID  string
	Password string
	Username string
}

type JoinPartyResponse struct {
	MemberID     string
	AuthToken    string
	JoinedMember Member
	Members      []Member
	Conns        []*websocket.Conn
}

func (s service) JoinParty(ctx context.Context, params *JoinPartyParams) (JoinPartyResponse, error) {
	session, err := s.partyRepo.GetSession(ctx, params.PartyID)
	if err != nil {
		if errors.Is(err, party.ErrPartyNotFound) {
			return JoinPartyResponse{}, ErrPartyNotFound
		}

		return JoinPartyResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	// a password mismatch must stay distinguishable from an unknown party
	if session.IsPrivate && session.Password != params.Password {
		return JoinPartyResponse{}, ErrWrongPassword
	}

	members, err := s.getMembers(ctx, params.PartyID)
	if err != nil {
		return JoinPartyResponse{}, err
	}

	if len(members) >= s.membersLimit {
		return JoinPartyResponse{}, ErrMembersLimitReached
	}

	for _, member := range members {
		if member.Username == params.Username {
			return JoinPartyResponse{}, ErrUsernameTaken
		}
	}

	memberID := uuid.NewString()
	if err := s.partyRepo.SetMember(ctx, &party.SetMemberParams{
		MemberID: memberID,
		PartyID:  params.PartyID,
		Username: params.Username,
		IsCoHost: false,
		IsOnline: false,
	}); err != nil {
		return JoinPartyResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	authToken, err := s.issueAuthToken(ctx, memberID)
	if err != nil {
		return JoinPartyResponse{}, err
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return JoinPartyResponse{}, err
	}

	joinedMember := Member{
		ID:       memberID,
		Username: params.Username,
	}

	return JoinPartyResponse{
		MemberID:     memberID,
		AuthToken:    authToken,
		JoinedMember: joinedMember,
		Members:      append(members, joinedMember),
		Conns:        conns,
	}, nil
}

type DestroyPartyParams struct {
	SenderID string
	PartyID  string
}

type DestroyPartyResponse struct {
	Conns []*websocket.Conn
}

// DestroyParty is the host's explicit teardown. Host disconnection without
// it leaves the party running; see DisconnectMember.
func (s service) DestroyParty(ctx context.Context, params *DestroyPartyParams) (DestroyPartyResponse, error) {
	if err := s.checkIfHost(ctx, params.PartyID, params.SenderID); err != nil {
		return DestroyPartyResponse{}, err
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return DestroyPartyResponse{}, err
	}

	if err := s.deleteParty(ctx, params.PartyID); err != nil {
		return DestroyPartyResponse{}, err
	}

	return DestroyPartyResponse{Conns: conns}, nil
}

type UpdateSettingsParams struct {
	SenderID      string
	PartyID       string
	AllowChat     *bool
	AllowControls *bool
	Season        *int
	Episode       *int
}

type UpdateSettingsResponse struct {
	Settings Settings
	Conns    []*websocket.Conn
}

func (s service) UpdateSettings(ctx context.Context, params *UpdateSettingsParams) (UpdateSettingsResponse, error) {
	if err := s.checkIfHost(ctx, params.PartyID, params.SenderID); err != nil {
		return UpdateSettingsResponse{}, err
	}

	if err := s.partyRepo.UpdateSettings(ctx, &party.UpdateSettingsParams{
		PartyID:       params.PartyID,
		AllowChat:     params.AllowChat,
		AllowControls: params.AllowControls,
		Season:        params.Season,
		Episode:       params.Episode,
	}); err != nil {
		return UpdateSettingsResponse{}, fmt.Errorf("failed to update settings: %w", err)
	}

	session, err := s.partyRepo.GetSession(ctx, params.PartyID)
	if err != nil {
		return UpdateSettingsResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return UpdateSettingsResponse{}, err
	}

	return UpdateSettingsResponse{
		Settings: Settings{
			AllowChat:     session.AllowChat,
			AllowControls: session.AllowControls,
			Season:        session.Season,
			Episode:       session.Episode,
		},
		Conns: conns,
	}, nil
}

type SetMovieParams struct {
	SenderID string
	PartyID  string
	Movie    json.RawMessage
}

type SetMovieResponse struct {
	Movie json.RawMessage
	Conns []*websocket.Conn
}

func (s service) SetMovie(ctx context.Context, params *SetMovieParams) (SetMovieResponse, error) {
	if err := s.checkControlRights(ctx, params.PartyID, params.SenderID); err != nil {
		return SetMovieResponse{}, err
	}

	if err := s.partyRepo.UpdateMovie(ctx, params.PartyID, string(params.Movie)); err != nil {
		return SetMovieResponse{}, fmt.Errorf("failed to update movie: %w", err)
	}

	conns, err := s.getConnsByPartyID(ctx, params.PartyID)
	if err != nil {
		return SetMovieResponse{}, err
	}

	return SetMovieResponse{Movie: params.Movie, Conns: conns}, nil
}

func (s service) GetPartyState(ctx context.Context, partyID string) (PartyState, error) {
	session, err := s.partyRepo.GetSession(ctx, partyID)
	if err != nil {
		return PartyState{}, fmt.Errorf("failed to get session: %w", err)
	}

	player, err := s.partyRepo.GetPlayer(ctx, partyID)
	if err != nil {
		return PartyState{}, fmt.Errorf("failed to get player: %w", err)
	}

	members, err := s.getMembers(ctx, partyID)
	if err != nil {
		return PartyState{}, err
	}

	messages, err := s.partyRepo.GetMessages(ctx, partyID)
	if err != nil {
		return PartyState{}, err
	}

	history := make([]Message, 0, len(messages))
	for _, msg := range messages {
		history = append(history, Message{
			User:      msg.User,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
			IsSystem:  msg.IsSystem,
		})
	}

	var movie json.RawMessage
	if session.Movie != "" {
		movie = json.RawMessage(session.Movie)
	}

	return PartyState{
		PartyID:  partyID,
		Name:     session.Name,
		HostName: session.HostName,
		Settings: Settings{
			AllowChat:     session.AllowChat,
			AllowControls: session.AllowControls,
			Season:        session.Season,
			Episode:       session.Episode,
		},
		Movie: movie,
		Player: PlayerState{
			IsPlaying:   player.IsPlaying,
			CurrentTime: player.CurrentTime,
			UpdatedAt:   player.UpdatedAt,
		},
		Members:  members,
		Messages: history,
	}, nil
}

func (s service) generatePartyID(ctx context.Context) (string, error) {
	for range 5 {
		partyID := s.generator.GenerateRandomString(s.partyCodeLength)

		exists, err := s.partyRepo.IsSessionExists(ctx, partyID)
		if err != nil {
			return "", fmt.Errorf("failed to check if session exists: %w", err)
		}

		if !exists {
			return partyID, nil
		}
	}

	return "", errors.New("failed to generate unique party id")
}

func (s service) issueAuthToken(ctx context.Context, memberID string) (string, error) {
	authToken, err := s.generateAuthToken(memberID)
	if err != nil {
		return "", fmt.Errorf("failed to generate auth token: %w", err)
	}

	if err := s.partyRepo.SetAuthToken(ctx, &party.SetAuthTokenParams{
		AuthToken: authToken,
		MemberID:  memberID,
	}); err != nil {
		return "", fmt.Errorf("failed to set auth token: %w", err)
	}

	return authToken, nil
}

func (s service) deleteParty(ctx context.Context, partyID string) error {
	memberIDs, err := s.partyRepo.GetMemberIDs(ctx, partyID)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, memberID := range memberIDs {
		if err := s.partyRepo.RemoveMember(ctx, &party.RemoveMemberParams{
			MemberID: memberID,
			PartyID:  partyID,
		}); err != nil {
			s.logger.InfoContext(ctx, "failed to remove member", "error", err)
		}
	}

	if err := s.partyRepo.RemoveMemberList(ctx, partyID); err != nil {
		s.logger.InfoContext(ctx, "failed to remove member list", "error", err)
	}
	if err := s.partyRepo.RemoveMessages(ctx, partyID); err != nil {
		s.logger.InfoContext(ctx, "failed to remove messages", "error", err)
	}
	if err := s.partyRepo.RemovePlayer(ctx, partyID); err != nil {
		s.logger.InfoContext(ctx, "failed to remove player", "error", err)
	}
	if err := s.partyRepo.RemoveSession(ctx, partyID); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return nil
}
