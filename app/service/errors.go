package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment record not found")
	ErrPaymentAlreadyExists = errors.New("payment record already exists")
	ErrInvalidTransition    = errors.New("invalid payment status transition")
)
