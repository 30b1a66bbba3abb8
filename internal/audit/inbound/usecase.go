package inbound

import (
	"context"

	"github.com/shandysiswandi/twofa/internal/audit/usecase"
)

type uc interface {
	Record(ctx context.Context, in usecase.RecordInput) error
	List(ctx context.Context, in usecase.ListInput) (*usecase.ListOutput, error)
}
