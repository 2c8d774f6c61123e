package notification

import (
	"context"
	"log/slog"
	"sync"

	errors "github.com/frahmantamala/time2pay/internal"
)

type Job struct {
	Message Message
	Reason  string
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "reason", job.Reason)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher fans email jobs out to a fixed pool of workers. Enqueue never
// blocks: a full queue is reported to the caller and the message is dropped.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

type DispatcherConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

func NewDispatcher(sender Sender, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	d := &Dispatcher{
		sender:     sender,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.startWorkerPool()

	return d
}

func (d *Dispatcher) startWorkerPool() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.drop(job)
					d.logger.Info("notification dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.drop(job)
				d.logger.Info("notification dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()

	if err := d.sender.Send(d.ctx, job.Message); err != nil {
		d.logger.Error("notification delivery failed",
			"to", job.Message.To,
			"reason", job.Reason,
			"error", err)
	}
}

func (d *Dispatcher) drop(job Job) {
	d.logger.Warn("notification dropped on shutdown", "to", job.Message.To, "reason", job.Reason)
	d.pending.Done()
}

// Enqueue hands the message to the pool without waiting for delivery.
func (d *Dispatcher) Enqueue(msg Message, reason string) error {
	if d.ctx.Err() != nil {
		return errors.NewExternalError("Notification service is shutting down.", errors.ErrCodeMailFailure, d.ctx.Err())
	}

	d.pending.Add(1)
	select {
	case d.jobQueue <- Job{Message: msg, Reason: reason}:
		return nil
	default:
		d.pending.Done()
		d.logger.Warn("notification queue full", "to", msg.To, "reason", reason, "queue_size", cap(d.jobQueue))
		return errors.NewExternalError("Notification queue is full.", errors.ErrCodeMailFailure, nil)
	}
}

// Shutdown waits for queued jobs until ctx ends, then stops the workers.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down notification dispatcher")

		drained := make(chan struct{})
		go func() {
			d.pending.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			d.logger.Warn("notification queue not drained before shutdown deadline")
		}

		d.cancel()
		d.wg.Wait()

		// anything still buffered never reached a worker
		for {
			select {
			case job := <-d.jobQueue:
				d.drop(job)
			default:
				d.logger.Info("notification dispatcher shutdown complete")
				return
			}
		}
	})
}
