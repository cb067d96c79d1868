package domain

import "errors"

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrStreamNotFound    = errors.New("stream not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotMember         = errors.New("user is not a member")
	ErrInvalidStreamType = errors.New("invalid stream type")
	ErrStreamExists      = errors.New("stream already exists")
)
