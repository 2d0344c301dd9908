package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrBackendConfig      = errors.New("identity backend is misconfigured")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrLockedOut          = errors.New("login temporarily locked")
	ErrInvalidAssertion   = errors.New("invalid federated assertion")
	ErrForbidden          = errors.New("access forbidden")
	ErrValidation         = errors.New("validation failed")
)
