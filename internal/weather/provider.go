package weather

import (
	"context"
)

// Source abstracts a weather diary site that publishes one page per month.
type Source interface {
	Name() string
	FetchMonth(ctx context.Context, m Month) ([]DiaryRecord, error)
}
