package jwt

import "errors"

var (
	ErrInvalidToken            = errors.New("jwt: token is invalid")
	ErrExpiredToken            = errors.New("jwt: token has expired")
	ErrMissingSigningKey       = errors.New("jwt: signing key is not configured")
	ErrInvalidClaims           = errors.New("jwt: claims are invalid")
	ErrMissingClaims           = errors.New("jwt: required claims are missing")
	ErrUnexpectedSigningMethod = errors.New("jwt: unexpected signing method")
)
