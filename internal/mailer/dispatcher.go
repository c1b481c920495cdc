package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrDispatcherClosed = errors.New("mail dispatcher is shut down")

type Worker struct {
	ID         int
	WorkerPool chan chan Message
	JobChannel chan Message
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Message, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Message),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Message)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case msg := <-w.JobChannel:
				w.Logger.Debug("worker sending mail", "worker_id", w.ID, "subject", msg.Subject)
				process(msg)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher queues messages and hands them to a fixed set of workers.
// Enqueue never blocks: a full queue drops the message.
type Dispatcher struct {
	sender      Sender
	logger      *slog.Logger
	sendTimeout time.Duration

	jobQueue   chan Message
	workerPool chan chan Message
	maxWorkers int

	// workers stop on ctx once the queue is drained; sendCtx aborts
	// in-flight sends when Shutdown runs out of time.
	ctx        context.Context
	cancel     context.CancelFunc
	sendCtx    context.Context
	sendCancel context.CancelFunc

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewDispatcher(sender Sender, cfg Config, logger *slog.Logger) *Dispatcher {
	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	sendCtx, sendCancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		sender:      sender,
		logger:      logger,
		sendTimeout: sendTimeout,
		jobQueue:    make(chan Message, queueSize),
		workerPool:  make(chan chan Message, maxWorkers),
		maxWorkers:  maxWorkers,
		ctx:         ctx,
		cancel:      cancel,
		sendCtx:     sendCtx,
		sendCancel:  sendCancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			NewWorker(i, d.workerPool, d.logger).Start(d.ctx, &d.wg, d.send)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("mail worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for msg := range d.jobQueue {
		select {
		case jobChannel := <-d.workerPool:
			select {
			case jobChannel <- msg:
			case <-d.ctx.Done():
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}

	// queue closed and drained
	d.cancel()
}

func (d *Dispatcher) send(msg Message) {
	ctx, cancel := context.WithTimeout(d.sendCtx, d.sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send mail", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	d.logger.Debug("mail sent", "to", msg.To, "subject", msg.Subject)
}

// Enqueue reports whether the message was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("mail dispatcher closed, dropping message", "to", msg.To, "subject", msg.Subject)
		return false
	}

	select {
	case d.jobQueue <- msg:
		return true
	default:
		d.logger.Warn("mail queue full, dropping message",
			"to", msg.To,
			"subject", msg.Subject,
			"queue_capacity", cap(d.jobQueue))
		return false
	}
}

// Shutdown stops accepting messages and waits for the queue to drain.
// When ctx ends first, in-flight sends are cancelled and ctx.Err is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.logger.Info("shutting down mail dispatcher", "pending", len(d.jobQueue))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.sendCancel()
		d.logger.Info("mail dispatcher shutdown complete")
		return nil
	case <-ctx.Done():
		d.sendCancel()
		d.cancel()
		d.logger.Warn("mail dispatcher shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}
