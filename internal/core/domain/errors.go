package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("invalid poll")
	ErrQuestionRequired = fmt.Errorf("%w: question is required", ErrValidation)
	ErrNotEnoughOptions = fmt.Errorf("%w: at least two valid options are required", ErrValidation)

	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")

	ErrAlreadyVoted      = errors.New("already voted")
	ErrDuplicateNetwork  = fmt.Errorf("%w from this network", ErrAlreadyVoted)
	ErrDuplicateIdentity = fmt.Errorf("%w as this user", ErrAlreadyVoted)
)
