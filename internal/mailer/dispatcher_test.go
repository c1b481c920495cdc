package mailer_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expenseflow/internal/mailer"
	"github.com/frahmantamala/expenseflow/pkg/logger"
)

type recordingSender struct {
	mu      sync.Mutex
	sent    []mailer.Message
	block   chan struct{}
	failFor string
}

func (r *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if msg.To == r.failFor {
		return errors.New("mailbox unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

var _ = Describe("Dispatcher", func() {
	var sender *recordingSender

	BeforeEach(func() {
		sender = &recordingSender{}
	})

	It("delivers every queued message and drains on shutdown", func() {
		d := mailer.NewDispatcher(sender, mailer.Config{Workers: 3, QueueSize: 50}, logger.Discard())
		for i := 0; i < 20; i++ {
			Expect(d.Enqueue(mailer.Message{To: fmt.Sprintf("user%d@acme.test", i), Subject: "hi"})).To(BeTrue())
		}

		Expect(d.Shutdown(context.Background())).To(Succeed())
		Expect(sender.count()).To(Equal(20))
	})

	It("keeps going after a failed send", func() {
		sender.failFor = "bad@acme.test"
		d := mailer.NewDispatcher(sender, mailer.Config{Workers: 1, QueueSize: 10}, logger.Discard())
		d.Enqueue(mailer.Message{To: "bad@acme.test"})
		d.Enqueue(mailer.Message{To: "good@acme.test"})

		Expect(d.Shutdown(context.Background())).To(Succeed())
		Expect(sender.count()).To(Equal(1))
	})

	It("drops messages when the queue is full", func() {
		sender.block = make(chan struct{})
		d := mailer.NewDispatcher(sender, mailer.Config{Workers: 1, QueueSize: 1}, logger.Discard())

		accepted := 0
		for i := 0; i < 10; i++ {
			if d.Enqueue(mailer.Message{To: "a@acme.test"}) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<", 10))

		close(sender.block)
		Expect(d.Shutdown(context.Background())).To(Succeed())
		Expect(sender.count()).To(Equal(accepted))
	})

	It("refuses messages after shutdown", func() {
		d := mailer.NewDispatcher(sender, mailer.Config{}, logger.Discard())
		Expect(d.Shutdown(context.Background())).To(Succeed())

		Expect(d.Enqueue(mailer.Message{To: "late@acme.test"})).To(BeFalse())
		Expect(d.Shutdown(context.Background())).To(MatchError(mailer.ErrDispatcherClosed))
	})

	It("gives up on in-flight sends when the shutdown deadline passes", func() {
		sender.block = make(chan struct{})
		d := mailer.NewDispatcher(sender, mailer.Config{Workers: 1, QueueSize: 5}, logger.Discard())
		d.Enqueue(mailer.Message{To: "slow@acme.test"})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		Expect(d.Shutdown(ctx)).To(MatchError(context.DeadlineExceeded))
		Expect(sender.count()).To(BeZero())
	})
})
