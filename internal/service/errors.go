package service

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrStreamNotFound  = errors.New("stream not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrNotProfileOwner = errors.New("you can only modify your own profile")
	ErrNotStreamOwner  = errors.New("you are not the owner of this stream")
	ErrNotPaymentOwner = errors.New("you are not the sender of this payment")
	ErrNotPaymentParty = errors.New("you are not a party to this payment")
	ErrUnverified      = errors.New("payment signature verification failed")
	ErrRoleNotAllowed  = errors.New("role can only be USER or STREAMER")

	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidAmount  = errors.New("amount must be a positive number")
	ErrInvalidStatus  = errors.New("invalid payment status")
	ErrPaymentExists  = errors.New("payment already exists")
	ErrStatusConflict = errors.New("payment status changed concurrently")
	ErrPaymentSettled = errors.New("payment already settled")
	ErrRateLimited    = errors.New("too many requests")
)
