package domain

import "time"

// DefaultErrorMessage is shown on validation failure when no message is configured.
const DefaultErrorMessage = "provider is not allowed"

// DisposableDomain is a single entry of the persisted blocklist.
// Name is stored lowercase and is unique case-insensitively.
type DisposableDomain struct {
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Rules is the runtime override configuration owned by the embedding
// application. AdditionalDomains always count as disposable and are matched
// exactly as stored. ExcludedDomains exempt store hits only, using an exact,
// case-sensitive match.
type Rules struct {
	ErrorMessage      string   `json:"error_message" yaml:"error_message"`
	AdditionalDomains []string `json:"additional_domains" yaml:"additional_domains"`
	ExcludedDomains   []string `json:"excluded_domains" yaml:"excluded_domains"`
}

// DefaultRules returns the rules an application starts with.
func DefaultRules() Rules {
	return Rules{
		ErrorMessage:      DefaultErrorMessage,
		AdditionalDomains: []string{},
		ExcludedDomains:   []string{},
	}
}

// Clone returns a deep copy so callers can mutate slices without aliasing.
func (r Rules) Clone() Rules {
	return Rules{
		ErrorMessage:      r.ErrorMessage,
		AdditionalDomains: append([]string{}, r.AdditionalDomains...),
		ExcludedDomains:   append([]string{}, r.ExcludedDomains...),
	}
}

// IsAdditional reports whether domain is listed in AdditionalDomains verbatim.
func (r Rules) IsAdditional(domain string) bool {
	return containsExact(r.AdditionalDomains, domain)
}

// IsExcluded reports whether domain is listed in ExcludedDomains verbatim.
func (r Rules) IsExcluded(domain string) bool {
	return containsExact(r.ExcludedDomains, domain)
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
