package services

import (
	"errors"
	"log"

	"estateSocialAPI/internal/apperr"
)

// internalOr passes service errors through unchanged and turns anything else
// into an Internal error, logging the cause.
func internalOr(op, msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	log.Printf("%s: %s: %v", op, msg, err)
	return apperr.Internal(msg, err)
}
