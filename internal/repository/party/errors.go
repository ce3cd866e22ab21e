package party

import "errors"

var (
	ErrPartyNotFound  = errors.New("party not found")
	ErrMemberNotFound = errors.New("member not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrTokenNotFound  = errors.New("auth token not found")
)
