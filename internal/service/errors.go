// Package service implements the account, session, OTP and credit ledger
// operations on top of the repositories. Handlers translate the sentinel
// errors below into HTTP responses.
package service

import "errors"

var (
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnauthenticated     = errors.New("missing, invalid or expired credentials")
	ErrInvalidOTP          = errors.New("otp is missing, invalid or expired")
	ErrInsufficientCredits = errors.New("not enough credits")
	ErrRateNotFound        = errors.New("no credits rate for amount")
	ErrAlreadySettled      = errors.New("payment already settled")
	ErrInvalidInput        = errors.New("invalid input")
	ErrWrongEvent          = errors.New("unexpected webhook event")
)
