package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/todo_service/internal/app/system"
	"github.com/R3E-Network/todo_service/pkg/logger"
)

// housekeeper runs periodic maintenance jobs on a cron schedule.
type housekeeper struct {
	cron *cron.Cron
	log  *logger.Logger
}

var _ system.Service = (*housekeeper)(nil)

// newHousekeeper schedules job on spec (standard cron or @every syntax).
func newHousekeeper(spec string, log *logger.Logger, job func()) (*housekeeper, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("invalid HOUSEKEEPING_SCHEDULE %q: %w", spec, err)
	}
	return &housekeeper{cron: c, log: log}, nil
}

func (h *housekeeper) Name() string { return "housekeeping" }

func (h *housekeeper) Start(context.Context) error {
	h.cron.Start()
	h.log.WithField("jobs", len(h.cron.Entries())).Info("housekeeping scheduler started")
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (h *housekeeper) Stop(ctx context.Context) error {
	select {
	case <-h.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
