package disposable

import (
	"sync/atomic"

	"github.com/ignite/nondisposable/internal/domain"
)

// RulesHolder publishes the runtime Rules to concurrent readers. Every
// write installs a fresh copy, so a loaded snapshot never changes under
// the reader.
type RulesHolder struct {
	p atomic.Pointer[domain.Rules]
}

// NewRulesHolder creates a holder initialised with r.
func NewRulesHolder(r domain.Rules) *RulesHolder {
	h := &RulesHolder{}
	h.Store(r)
	return h
}

// Load returns the current snapshot. Callers must not modify its slices.
func (h *RulesHolder) Load() domain.Rules {
	if r := h.p.Load(); r != nil {
		return *r
	}
	return domain.DefaultRules()
}

// Store replaces the rules wholesale.
func (h *RulesHolder) Store(r domain.Rules) {
	c := r.Clone()
	h.p.Store(&c)
}

// Update applies fn to a private copy of the current rules and publishes
// the result. Concurrent updates retry until their swap lands.
func (h *RulesHolder) Update(fn func(*domain.Rules)) domain.Rules {
	for {
		old := h.p.Load()
		var next domain.Rules
		if old != nil {
			next = old.Clone()
		} else {
			next = domain.DefaultRules()
		}
		fn(&next)
		if h.p.CompareAndSwap(old, &next) {
			return next.Clone()
		}
	}
}
