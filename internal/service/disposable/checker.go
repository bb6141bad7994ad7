package disposable

import (
	"context"
	"strings"

	"github.com/ignite/nondisposable/internal/metrics"
)

// Checker decides whether a domain or address belongs to a disposable
// provider. It only reads from the store and the rules.
type Checker struct {
	store   DomainStore
	rules   *RulesHolder
	metrics *metrics.Metrics
}

// NewChecker creates a checker. m may be nil.
func NewChecker(store DomainStore, rules *RulesHolder, m *metrics.Metrics) *Checker {
	return &Checker{store: store, rules: rules, metrics: m}
}

// IsDisposable checks a bare domain. Additional domains win over everything;
// exclusions only cancel store hits. There is no parent-domain matching:
// "mail.example.com" in the store says nothing about "example.com".
func (c *Checker) IsDisposable(ctx context.Context, domainName string) (bool, error) {
	if strings.TrimSpace(domainName) == "" {
		return false, nil
	}
	name := strings.ToLower(domainName)
	rules := c.rules.Load()

	if rules.IsAdditional(name) {
		c.metrics.IncrementLookup(metrics.LookupDisposable)
		return true, nil
	}

	found, err := c.store.Contains(ctx, name)
	if err != nil {
		c.metrics.IncrementLookup(metrics.LookupError)
		return false, &StorageError{Op: "contains", Err: err}
	}

	disposable := found && !rules.IsExcluded(name)
	if disposable {
		c.metrics.IncrementLookup(metrics.LookupDisposable)
	} else {
		c.metrics.IncrementLookup(metrics.LookupAllowed)
	}
	return disposable, nil
}

// IsDisposableEmail checks the domain part of email, taken as everything
// after the last '@'. Malformed input is not an error; it is simply not
// disposable.
func (c *Checker) IsDisposableEmail(ctx context.Context, email string) (bool, error) {
	domainName, ok := DomainOf(email)
	if !ok {
		return false, nil
	}
	return c.IsDisposable(ctx, domainName)
}

// DomainOf returns the lowercase text after the last '@' in email.
func DomainOf(email string) (string, bool) {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return "", false
	}
	return strings.ToLower(email[at+1:]), true
}
