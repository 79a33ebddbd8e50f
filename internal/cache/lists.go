package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/ignite/klaviyo-bridge/internal/feed"
	"github.com/ignite/klaviyo-bridge/internal/klaviyo"
	"github.com/ignite/klaviyo-bridge/internal/pkg/logger"
)

// listTTL keeps the directory fresh without hammering the lists endpoint
// on every settings-page render.
const listTTL = 30 * time.Minute

const listKeyPrefix = "klaviyo_lists_"

// PlaceholderLabel is the leading empty choice in the list dropdown.
const PlaceholderLabel = "Select a List"

// Validator is the credential gate for the directory. nil error = valid.
type Validator interface {
	ValidateKey(ctx context.Context, apiKey string) error
}

// ListFetcher fetches list metadata from the remote account.
type ListFetcher interface {
	GetLists(ctx context.Context, apiKey string) ([]klaviyo.List, error)
}

// ListDirectory serves the list-selection choices for the settings UI,
// caching remote list metadata per credential fingerprint.
type ListDirectory struct {
	store   Store
	gate    Validator
	fetcher ListFetcher
}

// NewListDirectory creates a list directory over the given cache store,
// credential gate, and fetcher.
func NewListDirectory(store Store, gate Validator, fetcher ListFetcher) *ListDirectory {
	return &ListDirectory{store: store, gate: gate, fetcher: fetcher}
}

// listCacheKey derives the cache key from a one-way hash of the API key.
// The hash only avoids key collisions across credentials; it is not a
// security boundary.
func listCacheKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return listKeyPrefix + hex.EncodeToString(sum[:])
}

// Choices returns the dropdown choices for the account's lists, always
// starting with the placeholder. Fetch failures degrade to whatever is
// available (cached, partial, or placeholder only) and are never raised.
func (d *ListDirectory) Choices(ctx context.Context, apiKey string) []feed.ListChoice {
	choices := []feed.ListChoice{{Label: PlaceholderLabel, Value: ""}}

	if err := d.gate.ValidateKey(ctx, apiKey); err != nil {
		logger.Debug("list directory: credential check failed, no lists loaded", "error", err)
		return choices
	}

	cacheKey := listCacheKey(apiKey)

	var cached []feed.ListChoice
	hit, err := d.store.Get(ctx, cacheKey, &cached)
	if err != nil {
		logger.Error("list directory: cache read failed", "error", err)
	}
	if hit && len(cached) > 0 {
		logger.Debug("list directory: cache hit", "lists", len(cached))
		return append(choices, cached...)
	}
	if hit {
		// An empty cached entry would mask a transient fetch failure as
		// "account has no lists". Treat it as stale and refetch.
		logger.Debug("list directory: cached entry was empty, refetching")
		if err := d.store.Delete(ctx, cacheKey); err != nil {
			logger.Error("list directory: cache delete failed", "error", err)
		}
	}

	lists, err := d.fetcher.GetLists(ctx, apiKey)
	if err != nil {
		// Fail-soft: keep whatever pages were accumulated before the error.
		logger.Error("list directory: list fetch failed", "error", err, "partial", len(lists))
	}

	entries := make([]feed.ListChoice, 0, len(lists))
	for _, l := range lists {
		entries = append(entries, feed.ListChoice{Label: l.Name, Value: l.ID})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Label) < strings.ToLower(entries[j].Label)
	})

	if len(entries) > 0 {
		if err := d.store.Set(ctx, cacheKey, entries, listTTL); err != nil {
			logger.Error("list directory: cache write failed", "error", err)
		}
		logger.Debug("list directory: cached lists", "lists", len(entries))
	} else {
		// Never cache an empty result; the next call retries the fetch.
		logger.Error("list directory: no lists found in account")
	}

	return append(choices, entries...)
}

// Invalidate drops cached lists for both the old and the new credential.
// The new fingerprint is deleted pre-emptively so the next read after a
// credential change is a guaranteed fresh fetch.
func (d *ListDirectory) Invalidate(ctx context.Context, oldKey, newKey string) {
	for _, k := range []string{oldKey, newKey} {
		if k == "" {
			continue
		}
		if err := d.store.Delete(ctx, listCacheKey(k)); err != nil {
			logger.Error("list directory: invalidation delete failed", "error", err)
		}
	}
	logger.Debug("list directory: cache invalidated for credential change")
}
