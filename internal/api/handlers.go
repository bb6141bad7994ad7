package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/nondisposable/internal/domain"
	"github.com/ignite/nondisposable/internal/pkg/httputil"
	"github.com/ignite/nondisposable/internal/pkg/logger"
	"github.com/ignite/nondisposable/internal/service/disposable"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Handlers contains all HTTP handlers
type Handlers struct {
	checker   *disposable.Checker
	validator *disposable.Validator
	refresher Refresher
	store     DomainLister
	rules     *disposable.RulesHolder
	metrics   http.Handler
	startTime time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		checker:   deps.Checker,
		validator: deps.Validator,
		refresher: deps.Refresher,
		store:     deps.Store,
		rules:     deps.Rules,
		metrics:   deps.Metrics,
		startTime: time.Now(),
	}
}

// CheckEmailResponse is returned by CheckEmail.
type CheckEmailResponse struct {
	Email      string `json:"email"`
	Domain     string `json:"domain"`
	Disposable bool   `json:"disposable"`
}

// CheckEmail reports whether an address uses a disposable domain.
//
//	GET /api/v1/check?email=
func (h *Handlers) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		httputil.BadRequest(w, "email query parameter is required")
		return
	}

	disposableEmail, err := h.checker.IsDisposableEmail(r.Context(), email)
	if err != nil {
		logger.Error("check email failed", "email", email, "error", err)
		httputil.Unavailable(w, err)
		return
	}

	domainName, _ := disposable.DomainOf(email)
	httputil.OK(w, CheckEmailResponse{
		Email:      email,
		Domain:     domainName,
		Disposable: disposableEmail,
	})
}

// CheckDomainResponse is returned by CheckDomain.
type CheckDomainResponse struct {
	Domain     string `json:"domain"`
	Disposable bool   `json:"disposable"`
}

// CheckDomain reports whether a bare domain is disposable.
//
//	GET /api/v1/check/domains/{domain}
func (h *Handlers) CheckDomain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")

	disposableDomain, err := h.checker.IsDisposable(r.Context(), name)
	if err != nil {
		httputil.Unavailable(w, err)
		return
	}
	httputil.OK(w, CheckDomainResponse{
		Domain:     strings.ToLower(name),
		Disposable: disposableDomain,
	})
}

// ValidateRequest is the body accepted by Validate.
type ValidateRequest struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

// ValidateResponse is returned by Validate.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Validate runs the fail-closed validator used by signup forms.
//
//	POST /api/v1/validate
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	var opts []disposable.ValidateOption
	if req.Message != "" {
		opts = append(opts, disposable.WithMessage(req.Message))
	}

	err := h.validator.Validate(r.Context(), req.Email, opts...)
	if err == nil {
		httputil.OK(w, ValidateResponse{Valid: true})
		return
	}

	var ve *disposable.ValidationError
	if errors.As(err, &ve) {
		httputil.JSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Error: ve.Message})
		return
	}
	httputil.InternalError(w, err)
}

// ListDomainsResponse is returned by ListDomains.
type ListDomainsResponse struct {
	Domains []domain.DisposableDomain `json:"domains"`
	Total   int                       `json:"total"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
}

// ListDomains pages through the stored blocklist in name order.
//
//	GET /api/v1/domains?limit=&offset=
func (h *Handlers) ListDomains(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	total, err := h.store.Count(r.Context())
	if err != nil {
		httputil.Unavailable(w, err)
		return
	}
	list, err := h.store.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		httputil.Unavailable(w, err)
		return
	}

	httputil.OK(w, ListDomainsResponse{
		Domains: list,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// RefreshResponse is returned by a successful Refresh.
type RefreshResponse struct {
	RunID      string `json:"run_id"`
	Count      int    `json:"count"`
	DurationMS int64  `json:"duration_ms"`
}

// Refresh runs the Updater synchronously.
//
//	POST /api/v1/refresh
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.refresher.Update(r.Context())
	switch {
	case err == nil:
		httputil.OK(w, RefreshResponse{
			RunID:      res.RunID,
			Count:      res.Count,
			DurationMS: res.Duration.Milliseconds(),
		})
	case errors.Is(err, disposable.ErrRefreshInProgress):
		httputil.ErrorCode(w, http.StatusConflict, "refresh_in_progress", err.Error())
	case disposable.IsFetchFailure(err):
		httputil.ErrorCode(w, http.StatusBadGateway, "upstream_failed", err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

// GetRules returns the current runtime rules.
//
//	GET /api/v1/rules
func (h *Handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.rules.Load())
}

// PutRules replaces the runtime rules wholesale. Omitted lists become empty
// and an omitted message falls back to the default.
//
//	PUT /api/v1/rules
func (h *Handlers) PutRules(w http.ResponseWriter, r *http.Request) {
	var rules domain.Rules
	if !httputil.Decode(w, r, &rules) {
		return
	}
	if rules.ErrorMessage == "" {
		rules.ErrorMessage = domain.DefaultErrorMessage
	}
	if rules.AdditionalDomains == nil {
		rules.AdditionalDomains = []string{}
	}
	if rules.ExcludedDomains == nil {
		rules.ExcludedDomains = []string{}
	}

	h.rules.Store(rules)
	logger.Info("runtime rules replaced",
		"additional", len(rules.AdditionalDomains),
		"excluded", len(rules.ExcludedDomains))
	httputil.OK(w, h.rules.Load())
}
