package services

import (
	"errors"

	"github.com/impactbridge/marketplace/internal/storage"
	"github.com/impactbridge/marketplace/pkg/response"
)

// storeErr maps storage sentinels onto API errors. Anything else passes
// through and ends up as a 500.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return response.NewNotFound(notFound)
	case errors.Is(err, storage.ErrConflict):
		return response.NewConflict(err.Error())
	}
	return err
}

func fieldErr(field, msg string) response.FieldError {
	return response.FieldError{Field: field, Message: msg}
}
