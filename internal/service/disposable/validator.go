package disposable

import (
	"context"
	"strings"

	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/pkg/logger"
)

// ValidateOption customizes a single Validate call.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	message string
}

// WithMessage overrides the configured rejection message.
func WithMessage(msg string) ValidateOption {
	return func(o *validateOptions) { o.message = msg }
}

// Validator is the integration point for form and API validation layers.
type Validator struct {
	checker *Checker
	rules   *RulesHolder
	log     *logger.Logger
}

// NewValidator creates a validator. log may be nil.
func NewValidator(checker *Checker, rules *RulesHolder, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Default()
	}
	return &Validator{checker: checker, rules: rules, log: log}
}

// Validate returns nil for acceptable or blank addresses and a
// *ValidationError otherwise. A lookup failure rejects the address.
func (v *Validator) Validate(ctx context.Context, email string, opts ...ValidateOption) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}

	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	disposable, err := v.checker.IsDisposableEmail(ctx, email)
	if err != nil {
		v.log.Error("disposable check failed",
			"email", email,
			"error", err)
		return &ValidationError{Message: FallbackMessage, Err: err}
	}
	if !disposable {
		return nil
	}

	msg := o.message
	if msg == "" {
		msg = v.rules.Load().ErrorMessage
	}
	if msg == "" {
		msg = domain.DefaultErrorMessage
	}
	return &ValidationError{Message: msg}
}
