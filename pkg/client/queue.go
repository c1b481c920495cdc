package client

import (
	"context"
	"sync"
)

// ApprovalQueue is a local copy of the pending approvals. Deciding an item
// removes it locally without reloading, so two queues drift until Refresh.
type ApprovalQueue struct {
	client *Client
	limit  int

	mu    sync.Mutex
	items []Expense
}

func NewApprovalQueue(c *Client, limit int) *ApprovalQueue {
	if limit <= 0 {
		limit = 50
	}
	return &ApprovalQueue{client: c, limit: limit}
}

func (q *ApprovalQueue) Refresh(ctx context.Context) error {
	items, err := q.client.PendingApprovals(ctx, q.limit, 0)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.items = items
	q.mu.Unlock()
	return nil
}

func (q *ApprovalQueue) Items() []Expense {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Expense, len(q.items))
	copy(out, q.items)
	return out
}

func (q *ApprovalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Approve decides the expense and drops it from the queue. On error the
// item stays where it was.
func (q *ApprovalQueue) Approve(ctx context.Context, expenseID string) (*Expense, error) {
	exp, err := q.client.Approve(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	q.remove(expenseID)
	return exp, nil
}

func (q *ApprovalQueue) Reject(ctx context.Context, expenseID, reason string) (*Expense, error) {
	exp, err := q.client.Reject(ctx, expenseID, reason)
	if err != nil {
		return nil, err
	}
	q.remove(expenseID)
	return exp, nil
}

func (q *ApprovalQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}
