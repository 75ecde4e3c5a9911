package invoice

import (
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Ledger is the ordered set of line items of one invoice session. All
// methods are safe for concurrent use; Drain is atomic with respect to every
// other mutation.
type Ledger struct {
	mu    sync.Mutex
	items []LineItem

	submitting atomic.Bool
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds item at the end and returns the index it was stored at.
func (l *Ledger) Append(item LineItem) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
	return len(l.items) - 1
}

// ReplaceAt swaps the item at index for item.
func (l *Ledger) ReplaceAt(index int, item LineItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.items) {
		return &IndexError{Index: index, Len: len(l.items)}
	}
	l.items[index] = item
	return nil
}

// RemoveAt deletes the item at index, shifting later items down.
func (l *Ledger) RemoveAt(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.items) {
		return &IndexError{Index: index, Len: len(l.items)}
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// At returns the item at index.
func (l *Ledger) At(index int) (LineItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.items) {
		return LineItem{}, &IndexError{Index: index, Len: len(l.items)}
	}
	return l.items[index], nil
}

// Items returns a snapshot copy in insertion order.
func (l *Ledger) Items() []LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the number of items.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Total sums item amounts.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Sum(l.items)
}

// Snapshot returns items and their total from a single consistent view.
func (l *Ledger) Snapshot() ([]LineItem, decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out, Sum(out)
}

// Drain removes and returns every item. An empty ledger drains to an empty,
// non-nil slice.
func (l *Ledger) Drain() []LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.items
	if out == nil {
		out = []LineItem{}
	}
	l.items = nil
	return out
}

// Restore puts a drained batch back in front of whatever the ledger holds
// now, keeping the batch's order.
func (l *Ledger) Restore(batch []LineItem) {
	if len(batch) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]LineItem, 0, len(batch)+len(l.items))
	merged = append(merged, batch...)
	merged = append(merged, l.items...)
	l.items = merged
}

// Clear empties the ledger on explicit user request.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

// BeginSubmission marks the ledger as being submitted. It fails with
// ErrSubmissionInProgress while a previous submission has not ended.
func (l *Ledger) BeginSubmission() error {
	if !l.submitting.CompareAndSwap(false, true) {
		return ErrSubmissionInProgress
	}
	return nil
}

// EndSubmission releases the mark set by BeginSubmission.
func (l *Ledger) EndSubmission() {
	l.submitting.Store(false)
}

// Submitting reports whether a submission is in flight.
func (l *Ledger) Submitting() bool {
	return l.submitting.Load()
}
