package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/resolver"
	"github.com/cinesync/server/internal/service/party"
	"github.com/cinesync/server/pkg/validator"
	"github.com/cinesync/server/pkg/wsrouter"
)

type iPartyService interface {
	CreateParty(context.Context, *party.CreatePartyParams) (party.CreatePartyResponse, error)
	JoinParty(context.Context, *party.JoinPartyParams) (party.JoinPartyResponse, error)
	DestroyParty(context.Context, *party.DestroyPartyParams) (party.DestroyPartyResponse, error)
	UpdateSettings(context.Context, *party.UpdateSettingsParams) (party.UpdateSettingsResponse, error)
	SetMovie(context.Context, *party.SetMovieParams) (party.SetMovieResponse, error)
	GetPartyState(context.Context, string) (party.PartyState, error)
	GetViewers(context.Context, string) (party.Viewers, error)
	ConnectMember(context.Context, *party.ConnectMemberParams) error
	DisconnectMember(context.Context, *party.DisconnectMemberParams) (party.DisconnectMemberResponse, error)
	KickMember(context.Context, *party.KickMemberParams) (party.KickMemberResponse, error)
	PromoteMember(context.Context, *party.PromoteMemberParams) (party.PromoteMemberResponse, error)
	DemoteMember(context.Context, *party.PromoteMemberParams) (party.PromoteMemberResponse, error)
	UpdatePlayerState(context.Context, *party.UpdatePlayerStateParams) (party.UpdatePlayerStateResponse, error)
	SendMessage(context.Context, *party.SendMessageParams) (party.SendMessageResponse, error)
}

type iResolver interface {
	Resolve(context.Context, *resolver.ResolveParams) resolver.ResolveResult
}

type controller struct {
	partyService iPartyService
	resolver     iResolver
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	wsmux        *wsrouter.WSRouter
	logger       *slog.Logger
}

func NewController(partyService iPartyService, rslv iResolver, logger *slog.Logger) *controller {
	c := controller{
		partyService: partyService,
		resolver:     rslv,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}

	c.wsmux = wsrouter.New()
	c.wsmux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	c.wsmux.OnError(c.handleWSError)

	wsrouter.Handle(c.wsmux, "ALIVE", c.handleAlive)
	wsrouter.Handle(c.wsmux, "SEND_MESSAGE", c.handleSendMessage)
	wsrouter.Handle(c.wsmux, "UPDATE_PLAYER_STATE", c.handleUpdatePlayerState)
	wsrouter.Handle(c.wsmux, "UPDATE_SETTINGS", c.handleUpdateSettings)
	wsrouter.Handle(c.wsmux, "KICK_MEMBER", c.handleKickMember)
	wsrouter.Handle(c.wsmux, "PROMOTE_MEMBER", c.handlePromoteMember)
	wsrouter.Handle(c.wsmux, "DEMOTE_MEMBER", c.handleDemoteMember)
	wsrouter.Handle(c.wsmux, "SET_MOVIE", c.handleSetMovie)
	wsrouter.Handle(c.wsmux, "DESTROY_PARTY", c.handleDestroyParty)

	return &c
}
