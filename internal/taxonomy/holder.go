package taxonomy

import "sync/atomic"

// Holder publishes the current taxonomy snapshot. Readers call [Holder.Current]
// once per pipeline run; writers replace the snapshot with [Holder.Swap].
type Holder struct {
	p atomic.Pointer[Taxonomy]
}

// NewHolder returns a holder publishing t.
func NewHolder(t *Taxonomy) *Holder {
	h := &Holder{}
	h.p.Store(t)
	return h
}

// Current returns the published snapshot.
func (h *Holder) Current() *Taxonomy {
	return h.p.Load()
}

// Swap publishes t and returns the previous snapshot.
func (h *Holder) Swap(t *Taxonomy) *Taxonomy {
	return h.p.Swap(t)
}
