package control

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/skynav/core"
	"github.com/signalsfoundry/skynav/internal/sim"
	"github.com/signalsfoundry/skynav/kb"
	"github.com/signalsfoundry/skynav/settings"
	"github.com/signalsfoundry/skynav/timectrl"
)

// ErrInvalidRequest is used for malformed request payloads.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps navigator errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrLocationNotFound),
		errors.Is(err, sim.ErrUnknownBody):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, settings.ErrUnknownViewingMode),
		errors.Is(err, settings.ErrUnknownStartupMode),
		errors.Is(err, settings.ErrInvalidVector),
		errors.Is(err, timectrl.ErrInvalidTimeOfDay),
		errors.Is(err, core.ErrUnknownFrame):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, core.ErrNothingSelected),
		errors.Is(err, core.ErrNotABody):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, sim.ErrStopped):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
