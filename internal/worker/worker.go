package worker

import (
	"context"
	"time"

	"github.com/jamesmaccoy/yocogoogle-sub002/internal/biz"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/conf"
	"github.com/jamesmaccoy/yocogoogle-sub002/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is worker providers.
var ProviderSet = wire.NewSet(NewWorker)

// dequeueTimeout bounds each blocking pop so shutdown is responsive.
const dequeueTimeout = 5 * time.Second

// Worker consumes the subscription task queue. It implements kratos
// transport.Server so its lifecycle is managed with the HTTP server.
// Delivery is at-least-once; ApplyEvent and the sweep are idempotent, so
// redelivered tasks are harmless.
type Worker struct {
	queue         biz.EventQueue
	uc            *biz.SubscriptionUsecase
	maxDeliveries int
	log           *log.Helper

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates the queue worker.
func NewWorker(c *conf.Bootstrap, queue biz.EventQueue, uc *biz.SubscriptionUsecase, logger log.Logger) *Worker {
	return &Worker{
		queue:         queue,
		uc:            uc,
		maxDeliveries: c.MaxDeliveries(),
		log:           log.NewHelper(logger),
		done:          make(chan struct{}),
	}
}

// Start runs the consume loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	defer close(w.done)

	w.log.Info("subscription worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		task, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Errorf("Failed to dequeue task: %v", err)
			// Back off so a broken Redis connection does not spin.
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if task == nil {
			continue
		}

		w.handle(ctx, task)
	}
}

// Stop cancels the consume loop and waits for it to drain.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) handle(ctx context.Context, task *biz.Task) {
	var err error
	switch task.Kind {
	case constants.TaskEvent:
		if task.Event == nil {
			w.log.Errorf("Dropping event task with no event payload")
			return
		}
		_, err = w.uc.ApplyEvent(ctx, task.Event)
	case constants.TaskSweep:
		_, _, err = w.uc.DowngradeExpired(ctx)
	default:
		w.log.Errorf("Dropping task with unknown kind %q", task.Kind)
		return
	}

	if err == nil {
		return
	}

	task.Deliveries++
	if task.Deliveries >= w.maxDeliveries {
		w.log.Errorf("Dropping %s task after %d deliveries: %v", task.Kind, task.Deliveries, err)
		return
	}

	w.log.Warnf("Requeueing %s task (delivery %d): %v", task.Kind, task.Deliveries, err)
	if qerr := w.queue.Enqueue(ctx, task); qerr != nil {
		w.log.Errorf("Failed to requeue %s task: %v", task.Kind, qerr)
	}
}
