package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/binarypay/internal/calculator"
	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/plan"
	"github.com/mmynk/binarypay/internal/storage"
)

var errInvalidArgument = errors.New("invalid argument")

// toConnectError maps domain errors to connect codes.
func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, errInvalidArgument),
		errors.Is(err, engine.ErrInvalidDate),
		errors.Is(err, models.ErrInvalidSide),
		errors.Is(err, calculator.ErrNegativeCount),
		errors.Is(err, plan.ErrInvalidPlan):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, engine.ErrRunInProgress):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
