package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs each settlement RPC with its procedure, the calling
// operator and its duration. The level follows the outcome: a run refused because
// another run holds the date is routine and logs at Info, caller mistakes log at
// Warn and server-side failures at Error.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"operator", GetOperator(ctx), // empty when unauthenticated
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err == nil {
				slog.InfoContext(ctx, "RPC ok", attrs...)
				return resp, nil
			}

			code := connect.CodeOf(err)
			attrs = append(attrs, "code", code.String(), "error", rpcErrorMessage(err))
			msg := "RPC error"
			if code == connect.CodeAborted {
				msg = "RPC refused, settlement run in progress"
			}
			slog.Log(ctx, levelForCode(code), msg, attrs...)
			return resp, err
		}
	}
}

// levelForCode separates caller errors from server failures.
func levelForCode(code connect.Code) slog.Level {
	switch code {
	case connect.CodeAborted:
		return slog.LevelInfo
	case connect.CodeInvalidArgument,
		connect.CodeNotFound,
		connect.CodeAlreadyExists,
		connect.CodeUnauthenticated,
		connect.CodePermissionDenied,
		connect.CodeCanceled:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func rpcErrorMessage(err error) string {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Message()
	}
	return err.Error()
}
