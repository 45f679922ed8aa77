package acquire

import (
	"github.com/google/uuid"

	"fuelprice/internal/fuel"
	"fuelprice/internal/store"
)

// Run is the transient state of one sweep. A pair is in at most one of
// Accepted and Failed.
type Run struct {
	ID       string
	Total    int
	Accepted map[fuel.Pair]fuel.Quote
	Failed   map[fuel.Pair]error

	pairs []fuel.Pair
}

// NewRun starts a sweep over pairs with a fresh ID.
func NewRun(pairs []fuel.Pair) *Run {
	return &Run{
		ID:       uuid.NewString(),
		Total:    len(pairs),
		Accepted: make(map[fuel.Pair]fuel.Quote, len(pairs)),
		Failed:   make(map[fuel.Pair]error),
		pairs:    pairs,
	}
}

// Accept records q for p and clears any earlier failure.
func (r *Run) Accept(p fuel.Pair, q fuel.Quote) {
	r.Accepted[p] = q
	delete(r.Failed, p)
}

// Fail records err as the final error for p.
func (r *Run) Fail(p fuel.Pair, err error) {
	if _, ok := r.Accepted[p]; ok {
		return
	}
	r.Failed[p] = err
}

// Batch lists the accepted quotes and failed pairs in sweep order.
func (r *Run) Batch() store.Batch {
	b := store.Batch{Total: r.Total}
	for _, p := range r.pairs {
		if q, ok := r.Accepted[p]; ok {
			b.Quotes = append(b.Quotes, q)
		} else if _, ok := r.Failed[p]; ok {
			b.Failed = append(b.Failed, p)
		}
	}
	return b
}
