package repository

import (
	"fmt"

	"github.com/nearu/nearu-backend/internal/models"
)

// storageErr marks a driver failure as ErrStorageUnavailable while keeping the cause
func storageErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, models.ErrStorageUnavailable, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
