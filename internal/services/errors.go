package services

import "errors"

// Sentinel errors returned by the user and search services. Handlers map
// these onto HTTP status codes; anything else is treated as a store failure.
var (
	ErrInvalidEmail          = errors.New("invalid email address")
	ErrInvalidNickname       = errors.New("invalid nickname")
	ErrWeakPassword          = errors.New("password does not meet strength requirements")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrDuplicateNickname     = errors.New("nickname already exists")
	ErrEmptyUpdate           = errors.New("at least one field must be provided for update")
	ErrBioTooLong            = errors.New("bio exceeds maximum length of 500 characters")
	ErrInvalidProfilePicture = errors.New("profile picture URL is invalid or empty")
	ErrInvalidURL            = errors.New("invalid URL format")
	ErrInvalidRole           = errors.New("invalid role")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailNotVerified      = errors.New("email address not verified")
	ErrAccountLocked         = errors.New("account is locked")
	ErrInvalidCredentials    = errors.New("invalid email or password")
)
