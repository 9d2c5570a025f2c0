package config

import "errors"

var (
	// ErrMissingJWTSecret is returned by Validate when auth.jwt_secret is empty.
	ErrMissingJWTSecret = errors.New("auth.jwt_secret is required (set XYNTORO_AUTH_JWT_SECRET)")

	// ErrInvalidConfig wraps every other validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)
