// Package sync orchestrates the two-phase submission sync: create or
// update the Klaviyo profile, then subscribe it to the feed's list.
package sync

import (
	"context"
	"errors"
	"strings"
	gosync "sync"

	"github.com/ignite/klaviyo-bridge/internal/cache"
	"github.com/ignite/klaviyo-bridge/internal/feed"
	"github.com/ignite/klaviyo-bridge/internal/klaviyo"
	"github.com/ignite/klaviyo-bridge/internal/pkg/logger"
)

// APIKeySetting is the settings-store key holding the Klaviyo private key.
const APIKeySetting = "api_key"

// Note severities attached to submissions.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// API is the slice of the Klaviyo client the orchestrator needs.
type API interface {
	ValidateKey(ctx context.Context, apiKey string) error
	CreateOrUpdateProfile(ctx context.Context, apiKey string, attrs klaviyo.ProfileAttributes) error
	SubscribeToLists(ctx context.Context, apiKey, email string, listIDs, consent []string) error
}

// Settings is the operator settings store (the credential lives here).
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Notes attaches operator-visible notes to a submission.
type Notes interface {
	Attach(ctx context.Context, submissionID, text, severity string) error
}

// Processor runs the submission state machine. It owns the memoized
// credential verdict; the verdict is explicit per-instance state, reset
// whenever the stored credential changes.
type Processor struct {
	api       API
	settings  Settings
	notes     Notes
	condition feed.Evaluator
	directory *cache.ListDirectory

	mu      gosync.Mutex
	verdict *verdict
}

// verdict memoizes the outcome of the last credential check for one key.
type verdict struct {
	apiKey string
	err    error
}

// NewProcessor wires the orchestrator. The list directory is created here
// so its credential gate shares the processor's memoized verdict.
func NewProcessor(api API, store cache.Store, fetcher cache.ListFetcher, settings Settings, notes Notes, condition feed.Evaluator) *Processor {
	p := &Processor{
		api:       api,
		settings:  settings,
		notes:     notes,
		condition: condition,
	}
	p.directory = cache.NewListDirectory(store, p, fetcher)
	return p
}

// ValidateKey checks a credential, memoizing accept/reject verdicts.
// Connection errors are transient and never memoized. Satisfies
// cache.Validator so the list directory gates on the same verdict.
func (p *Processor) ValidateKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return klaviyo.ErrMissingKey
	}

	p.mu.Lock()
	if p.verdict != nil && p.verdict.apiKey == apiKey {
		err := p.verdict.err
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	err := p.api.ValidateKey(ctx, apiKey)

	var connErr *klaviyo.ConnectionError
	if !errors.As(err, &connErr) {
		p.mu.Lock()
		p.verdict = &verdict{apiKey: apiKey, err: err}
		p.mu.Unlock()
	}
	return err
}

// ValidateCredential is the settings-UI feedback check: true for a key the
// remote accepts, false otherwise.
func (p *Processor) ValidateCredential(ctx context.Context, apiKey string) bool {
	err := p.ValidateKey(ctx, apiKey)
	if err != nil {
		logger.Debug("credential validation failed", "api_key", apiKey, "error", err)
		return false
	}
	return true
}

// UpdateCredential stores a new API key. On change it resets the memoized
// verdict and drops cached lists for both the old and new fingerprints.
func (p *Processor) UpdateCredential(ctx context.Context, newKey string) error {
	newKey = strings.TrimSpace(newKey)

	oldKey, err := p.settings.Get(ctx, APIKeySetting)
	if err != nil {
		return err
	}
	if err := p.settings.Set(ctx, APIKeySetting, newKey); err != nil {
		return err
	}

	if oldKey != newKey {
		p.mu.Lock()
		p.verdict = nil
		p.mu.Unlock()
		p.directory.Invalidate(ctx, oldKey, newKey)
		logger.Debug("credential updated, caches invalidated", "api_key", newKey)
	}
	return nil
}

// ListChoices returns the list dropdown choices using the stored credential.
func (p *Processor) ListChoices(ctx context.Context) []feed.ListChoice {
	apiKey, err := p.settings.Get(ctx, APIKeySetting)
	if err != nil {
		logger.Error("failed to read stored credential", "error", err)
		return []feed.ListChoice{{Label: cache.PlaceholderLabel, Value: ""}}
	}
	return p.directory.Choices(ctx, apiKey)
}

// ProcessSubmission runs the full state machine for one feed and one
// submission. Failures are logged, attached as notes, and returned as a
// tagged Result; nothing is retried and a successful profile upsert is
// never rolled back when the subscribe phase fails.
func (p *Processor) ProcessSubmission(ctx context.Context, f *feed.Feed, sub feed.Submission, form feed.Form) Result {
	// ConditionCheck
	if !p.condition.IsMet(f, form, sub) {
		logger.Debug("feed condition not met, skipping", "feed", f.ID, "submission", sub.ID)
		return skipped()
	}

	// CredentialCheck
	apiKey, err := p.settings.Get(ctx, APIKeySetting)
	if err != nil || strings.TrimSpace(apiKey) == "" {
		logger.Error("API credentials are not configured", "feed", f.ID)
		p.attachNote(ctx, sub.ID, "Klaviyo API key is not configured.", SeverityError)
		return failed(KindMissingCredentials, "Klaviyo API key is not configured.")
	}

	// FieldValidation
	if f.Meta.Email == "" {
		logger.Error("email field is not mapped in feed", "feed", f.ID)
		p.attachNote(ctx, sub.ID, "Email field is not mapped in feed.", SeverityError)
		return fieldError("email", "Email field is not mapped in feed.")
	}

	email := strings.TrimSpace(sub.Value(f.Meta.Email))
	if email == "" || !feed.IsValidEmail(email) {
		logger.Error("invalid email address in submission", "feed", f.ID, "email", email)
		p.attachNote(ctx, sub.ID, "Invalid email address.", SeverityError)
		return fieldError("email", "Invalid email address.")
	}

	if f.Meta.ListID == "" {
		logger.Error("no list selected in feed", "feed", f.ID)
		p.attachNote(ctx, sub.ID, "A Klaviyo list must be selected.", SeverityError)
		return fieldError("lists", "A Klaviyo list must be selected.")
	}

	// ProfileUpsert
	attrs := feed.BuildProfileAttributes(f, sub, email)
	if err := p.api.CreateOrUpdateProfile(ctx, apiKey, attrs); err != nil {
		kind, detail := classifyAPIError(err)
		logger.Error("failed to create/update profile in Klaviyo", "feed", f.ID, "email", email, "error", err)
		p.attachNote(ctx, sub.ID, "Failed to create/update profile in Klaviyo: "+detail, SeverityError)
		return failed(kind, detail)
	}

	// ListSubscribe. The upsert above is idempotent, so a failure here is
	// left as-is; a resubmission retries the subscription safely.
	consent := feed.Consent(f, sub)
	logger.Debug("determined consent for subscription", "feed", f.ID, "consent", strings.Join(consent, ","))

	if err := p.api.SubscribeToLists(ctx, apiKey, attrs.Email, []string{f.Meta.ListID}, consent); err != nil {
		kind, detail := classifyAPIError(err)
		logger.Error("failed to subscribe to list in Klaviyo", "feed", f.ID, "email", email, "error", err)
		p.attachNote(ctx, sub.ID, "Failed to subscribe to lists in Klaviyo: "+detail, SeverityError)
		return failed(kind, detail)
	}

	// Success
	p.attachNote(ctx, sub.ID, "Successfully added to Klaviyo.", SeveritySuccess)
	logger.Debug("profile synced and subscribed", "feed", f.ID, "email", email)
	return ok()
}

func (p *Processor) attachNote(ctx context.Context, submissionID, text, severity string) {
	if err := p.notes.Attach(ctx, submissionID, text, severity); err != nil {
		logger.Error("failed to attach submission note", "submission", submissionID, "error", err)
	}
}

// classifyAPIError maps a client error onto the result taxonomy with the
// best-available detail string.
func classifyAPIError(err error) (Kind, string) {
	var apiErr *klaviyo.APIError
	if errors.As(err, &apiErr) {
		detail := apiErr.Detail
		if detail == "" {
			detail = "Unknown error occurred."
		}
		return KindAPIError, detail
	}

	var connErr *klaviyo.ConnectionError
	if errors.As(err, &connErr) {
		return KindAPIError, "Failed to connect to Klaviyo API. Please check your credentials and try again."
	}

	return KindAPIError, err.Error()
}
