package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/velara-labs/cryptomart-backend/pkg/logger"
)

const defaultExpiryBatch = 200

type orderExpirer interface {
	ExpireUnpaid(ctx context.Context, now time.Time, limit int) (int, error)
}

// OrderExpiryJobParams configure the unpaid-order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    orderExpirer
	BatchSize int
}

// NewOrderExpiryJob builds the job that cancels orders whose payment window lapsed.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders orderExpirer
	batch  int
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

// Run sweeps in batches until a batch comes back short, so one slow cycle
// cannot leave an unbounded backlog for the next.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		expired, err := j.orders.ExpireUnpaid(ctx, j.now().UTC(), j.batch)
		if err != nil {
			return fmt.Errorf("expire unpaid orders: %w", err)
		}
		total += expired
		if expired < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_expired": total,
		"batch_size":     j.batch,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
