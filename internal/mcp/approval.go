package mcpserver

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"pagebuilder/internal/service"

	"github.com/google/uuid"
)

// Events published by the approval queue.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

// DefaultApprovalTimeout is how long a destructive call waits for a user.
const DefaultApprovalTimeout = 120 * time.Second

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	PageID      string `json:"pageId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

type pendingEntry struct {
	action PendingAction
	ch     chan actionResult
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool
// calls. Requests are announced through the emitter and resolved by
// Approve or Reject, typically from the HTTP API.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]pendingEntry
	emitter service.EventEmitter
	timeout time.Duration
}

func NewApprovalQueue(emitter service.EventEmitter, timeout time.Duration) *ApprovalQueue {
	if emitter == nil {
		emitter = service.NoopEmitter{}
	}
	if timeout <= 0 {
		timeout = DefaultApprovalTimeout
	}
	return &ApprovalQueue{
		pending: make(map[string]pendingEntry),
		emitter: emitter,
		timeout: timeout,
	}
}

// Request announces an action and blocks until it is approved, rejected,
// timed out, or ctx is done. Only approval returns a nil error.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description, pageID string) error {
	action := PendingAction{
		ID:          uuid.New().String(),
		Tool:        tool,
		Description: description,
		PageID:      pageID,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[action.ID] = pendingEntry{action: action, ch: ch}
	q.mu.Unlock()
	defer q.cleanup(action.ID)

	q.emitter.Emit(ctx, EventApprovalRequired, action)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		if !result.approved {
			return fmt.Errorf("action rejected by user: %s", tool)
		}
		return nil
	case <-timer.C:
		q.emitter.Emit(ctx, EventApprovalDismissed, map[string]string{"id": action.ID})
		return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		q.emitter.Emit(context.Background(), EventApprovalDismissed, map[string]string{"id": action.ID})
		return fmt.Errorf("approval of %s: %w", tool, ctx.Err())
	}
}

// Pending lists the actions awaiting a decision, oldest first.
func (q *ApprovalQueue) Pending() []PendingAction {
	q.mu.Lock()
	out := make([]PendingAction, 0, len(q.pending))
	for _, e := range q.pending {
		out = append(out, e.action)
	}
	q.mu.Unlock()
	slices.SortFunc(out, func(a, b PendingAction) int {
		if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Approve marks a pending action as approved. It reports whether the action
// was pending.
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.resolve(actionID, true)
}

// Reject marks a pending action as rejected.
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) bool {
	q.mu.Lock()
	e, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case e.ch <- actionResult{approved: approved}:
		return true
	default:
		// Already decided.
		return false
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
