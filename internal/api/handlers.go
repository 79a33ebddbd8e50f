package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/klaviyo-bridge/internal/feed"
	"github.com/ignite/klaviyo-bridge/internal/pkg/httputil"
	"github.com/ignite/klaviyo-bridge/internal/pkg/logger"
	"github.com/ignite/klaviyo-bridge/internal/repository/postgres"
	"github.com/ignite/klaviyo-bridge/internal/sync"
)

// FeedStore is the slice of the feed repository the handlers need.
type FeedStore interface {
	Create(ctx context.Context, f *feed.Feed) error
	GetByID(ctx context.Context, id string) (*feed.Feed, error)
	ListByForm(ctx context.Context, formID string) ([]feed.Feed, error)
	ListActiveByForm(ctx context.Context, formID string) ([]feed.Feed, error)
	Update(ctx context.Context, f *feed.Feed) error
	Delete(ctx context.Context, id string) error
}

// NoteStore reads back the notes attached to a submission.
type NoteStore interface {
	ListBySubmission(ctx context.Context, submissionID string) ([]postgres.Note, error)
}

// Orchestrator is the processing surface exposed to the HTTP layer.
type Orchestrator interface {
	ValidateCredential(ctx context.Context, apiKey string) bool
	UpdateCredential(ctx context.Context, newKey string) error
	ListChoices(ctx context.Context) []feed.ListChoice
	ProcessSubmission(ctx context.Context, f *feed.Feed, sub feed.Submission, form feed.Form) sync.Result
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	orchestrator Orchestrator
	feeds        FeedStore
	notes        NoteStore
}

// NewHandlers creates the handler set.
func NewHandlers(orchestrator Orchestrator, feeds FeedStore, notes NoteStore) *Handlers {
	return &Handlers{orchestrator: orchestrator, feeds: feeds, notes: notes}
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// ValidateSettings is the settings-UI feedback check: it validates the key
// the operator has typed, not the saved one.
func (h *Handlers) ValidateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.APIKey == "" {
		// No icon yet: nothing to validate
		httputil.OK(w, map[string]any{"valid": nil})
		return
	}

	valid := h.orchestrator.ValidateCredential(r.Context(), req.APIKey)
	httputil.OK(w, map[string]any{"valid": valid})
}

// UpdateAPIKey stores a new credential. Cache invalidation happens inside
// the orchestrator when the value actually changes.
func (h *Handlers) UpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	if err := h.orchestrator.UpdateCredential(r.Context(), req.APIKey); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// ListChoices returns the dropdown choices for the account's lists.
func (h *Handlers) ListChoices(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.orchestrator.ListChoices(r.Context()))
}

// CreateFeed creates a feed for a form after checking the two settings a
// feed cannot work without.
func (h *Handlers) CreateFeed(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var f feed.Feed
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	f.FormID = formID

	if field, msg, ok := validateFeedMeta(f.Meta); !ok {
		httputil.FieldError(w, field, msg)
		return
	}

	if err := h.feeds.Create(r.Context(), &f); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, f)
}

// ListFeeds returns all feeds configured for a form.
func (h *Handlers) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.feeds.ListByForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if feeds == nil {
		feeds = []feed.Feed{}
	}
	httputil.OK(w, feeds)
}

// GetFeed returns one feed by ID.
func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	f, err := h.feeds.GetByID(r.Context(), chi.URLParam(r, "feedID"))
	if errors.Is(err, postgres.ErrNotFound) {
		httputil.NotFound(w, "feed not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, f)
}

// UpdateFeed replaces a feed's settings.
func (h *Handlers) UpdateFeed(w http.ResponseWriter, r *http.Request) {
	var f feed.Feed
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	f.ID = chi.URLParam(r, "feedID")

	if field, msg, ok := validateFeedMeta(f.Meta); !ok {
		httputil.FieldError(w, field, msg)
		return
	}

	err := h.feeds.Update(r.Context(), &f)
	if errors.Is(err, postgres.ErrNotFound) {
		httputil.NotFound(w, "feed not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, f)
}

// DeleteFeed removes a feed.
func (h *Handlers) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	err := h.feeds.Delete(r.Context(), chi.URLParam(r, "feedID"))
	if errors.Is(err, postgres.ErrNotFound) {
		httputil.NotFound(w, "feed not found")
		return
	}
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// feedRunResult is the per-feed outcome reported to the webhook caller.
type feedRunResult struct {
	FeedID string `json:"feed_id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HandleSubmission is the submission-event webhook. Every active feed on
// the form runs; failures surface as submission notes and in the response
// body, never as a non-2xx status (the form host should not retry on our
// behalf).
func (h *Handlers) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")

	var sub feed.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if sub.ID == "" {
		httputil.BadRequest(w, "submission id is required")
		return
	}

	feeds, err := h.feeds.ListActiveByForm(r.Context(), formID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	form := feed.Form{ID: formID}
	results := make([]feedRunResult, 0, len(feeds))
	for i := range feeds {
		res := h.orchestrator.ProcessSubmission(r.Context(), &feeds[i], sub, form)
		results = append(results, feedRunResult{
			FeedID: feeds[i].ID,
			Status: string(res.Kind),
			Detail: res.Detail,
		})
	}

	logger.Debug("submission processed", "form", formID, "submission", sub.ID, "feeds", len(feeds))
	httputil.JSON(w, http.StatusAccepted, map[string]any{"results": results})
}

// ListNotes returns the notes attached to a submission.
func (h *Handlers) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListBySubmission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if notes == nil {
		notes = []postgres.Note{}
	}
	httputil.OK(w, notes)
}

// validateFeedMeta enforces the two required feed settings: an email
// mapping and a list selection.
func validateFeedMeta(m feed.Meta) (field, msg string, ok bool) {
	if m.Email == "" {
		return "email", "Email field must be mapped.", false
	}
	if m.ListID == "" {
		return "lists", "A Klaviyo list must be selected.", false
	}
	return "", "", true
}
