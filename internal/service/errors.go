package service

import (
	"errors"

	"github.com/qs3c/redact_go_server/internal/repository"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidPlan         = errors.New("invalid plan")
	ErrNoDepositAddress    = errors.New("no deposit address, call deposit-address first")
	ErrInsufficientCredits = repository.ErrInsufficientCredits
)
