package validate

import (
	"errors"
	"fmt"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
)

const (
	MaxCaptionLen int = 256
	MaxUserIDLen  int = 128

	FormFile     = "file"
	FormReceiver = "receiver_id"
	FormCaption  = "caption"
)

func ReceiverID(id string) error {
	if id == "" {
		return fmt.Errorf("%s is required: %w", FormReceiver, errs.ErrInvalidArgument)
	}
	if len(id) > MaxUserIDLen {
		return fmt.Errorf("%s can't be longer than %d: %w", FormReceiver, MaxUserIDLen, errs.ErrInvalidArgument)
	}
	if err := entity.CheckUserID(id); err != nil {
		return fmt.Errorf("%s: %w", FormReceiver, errors.Join(errs.ErrInvalidArgument, err))
	}

	return nil
}

func Caption(caption string) error {
	if len([]rune(caption)) > MaxCaptionLen {
		return fmt.Errorf("%s can't be longer than %d characters: %w", FormCaption, MaxCaptionLen, errs.ErrInvalidArgument)
	}

	return nil
}
