package fitscore

import "errors"

var (
	ErrQuoteRequestNotFound  = errors.New("Quote request not found")
	ErrCapabilityNotDeclared = errors.New("Producer capability not declared")
)
