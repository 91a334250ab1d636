package fleet

import (
	"context"
	"log/slog"
	"slices"

	"github.com/robfig/cron/v3"

	domainerrors "drone-fleet/internal/errors"
	"drone-fleet/internal/events"
	"drone-fleet/internal/order"
)

// Dispatcher periodically auto-assigns confirmed orders, oldest first.
type Dispatcher struct {
	coordinator *Coordinator
	publisher   events.Publisher
	cron        *cron.Cron
	schedule    string
	operator    string
	batch       int
	logger      *slog.Logger
}

func NewDispatcher(c *Coordinator, publisher events.Publisher, schedule, operator string, batch int, logger *slog.Logger) *Dispatcher {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		coordinator: c,
		publisher:   publisher,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		schedule:    schedule,
		operator:    operator,
		batch:       batch,
		logger:      logger.With("component", "auto_dispatcher"),
	}
}

func (d *Dispatcher) Start() error {
	_, err := d.cron.AddFunc(d.schedule, func() {
		ctx := context.Background()
		if _, err := d.RunOnce(ctx); err != nil {
			d.logger.ErrorContext(ctx, "auto dispatch run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	d.cron.Start()
	d.logger.Info("auto dispatcher started", "schedule", d.schedule)
	return nil
}

// Stop waits for a run in progress to finish.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
	d.logger.Info("auto dispatcher stopped")
}

// RunOnce assigns up to batch confirmed orders and reports how many were
// bound. Running out of drones ends the run early without an error; an
// order no free drone can carry is skipped so lighter ones behind it still
// go out.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	orders, err := d.coordinator.store.Orders().List(ctx, order.Filter{Status: []order.Status{order.StatusConfirmed}})
	if err != nil {
		return 0, domainerrors.NewInternal("failed to list confirmed orders", err)
	}
	slices.Reverse(orders)
	if d.batch > 0 && len(orders) > d.batch {
		orders = orders[:d.batch]
	}

	assigned := 0
	for _, o := range orders {
		res, err := d.coordinator.AutoAssign(ctx, o.ID, d.operator)
		switch {
		case err == nil:
		case domainerrors.HasCode(err, domainerrors.ErrDroneUnavailable):
			free, lerr := d.coordinator.ListAvailable(ctx)
			if lerr != nil {
				return assigned, lerr
			}
			if len(free) == 0 {
				return assigned, nil
			}
			continue
		case domainerrors.HasCode(err, domainerrors.ErrOrderNotAssignable):
			// moved on by someone else since listing
			continue
		default:
			d.logger.ErrorContext(ctx, "auto assign failed", "order_id", o.ID.String(), "error", err)
			continue
		}

		assigned++
		if res.Replayed {
			continue
		}
		events.Emit(ctx, d.publisher, events.ForOrder(events.OrderAssigned, res.Order, d.operator))
	}
	return assigned, nil
}
