package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/codex-hiring-lifecycle/internal/core/shared"
	pgdb "github.com/ogurasousui/codex-hiring-lifecycle/internal/platform/db/postgres"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatusError はドメインエラーの種別を gRPC ステータスへ変換します。
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, shared.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case pgdb.IsLockTimeout(err):
		// 同一候補者への操作が競合している。クライアントは再試行できる。
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
