package dto

import (
	"errors"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// Códigos de ErrorResponse. La API y el cliente REST comparten la tabla para
// que el error de dominio sobreviva el viaje por la red.
var errorCodes = []struct {
	code string
	err  error
}{
	{"ITEM_NOT_FOUND", domain.ErrItemNotFound},
	{"TIMER_NOT_FOUND", domain.ErrTimerNotFound},
	{"NOT_FOUND", domain.ErrNotFound},
	{"CATEGORY_NOT_ELIGIBLE", domain.ErrCategoryNotEligible},
	{"SYSTEM_GROUP_IMMUTABLE", domain.ErrSystemGroupImmutable},
	{"INVALID_TRANSITION", domain.ErrInvalidTransition},
	{"INVALID_SUB_STATE", domain.ErrInvalidSubState},
	{"ALREADY_IN_STATE", domain.ErrAlreadyInState},
	{"DUPLICATE_SCAN", domain.ErrDuplicateScan},
	{"INVALID_DURATION", domain.ErrInvalidDuration},
	{"VALIDATION", domain.ErrInvalidInput},
	{"UNAUTHORIZED", domain.ErrUnauthorized},
	{"CONFLICT", domain.ErrConflict},
	{"UNAVAILABLE", domain.ErrDispatcherNotRunning},
}

// CodeInternal código para errores sin equivalente de dominio.
const CodeInternal = "INTERNAL"

// ErrorCode código de ErrorResponse para err.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

// ErrorFromCode error de dominio asociado al código; nil si no se conoce.
func ErrorFromCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
