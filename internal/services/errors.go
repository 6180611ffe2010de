package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nidkeeper/internal/common"
)

// persistence marks err as a storage failure.
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrPersistence, op, err)
}

// repoErr passes nil and repository business outcomes through and marks
// anything else as a storage failure.
func repoErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrPersistence):
		return err
	default:
		return persistence(op, err)
	}
}
