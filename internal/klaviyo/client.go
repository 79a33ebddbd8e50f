package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ignite/klaviyo-bridge/internal/config"
	"github.com/ignite/klaviyo-bridge/internal/pkg/logger"
)

// Version identifies this integration in the User-Agent header.
const Version = "1.0.0"

// maxListPages caps the pagination loop so a misbehaving next link can
// never spin the fetch forever. Exceeding it returns the pages accumulated
// so far and logs a warning.
const maxListPages = 25

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests inject their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the Klaviyo API client. Calls carry the private API key per
// request rather than per client, because the key is operator-editable at
// runtime and validated independently of any one client instance.
type Client struct {
	baseURL    string
	revision   string
	httpClient HTTPDoer
}

// NewClient creates a Klaviyo API client from configuration.
// No retry wrapper is installed: a failed submission is surfaced to the
// operator and retried by resubmission, never silently by the client.
func NewClient(cfg config.KlaviyoConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		revision: cfg.Revision,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request and returns the status code
// and response body. Transport failures come back as *ConnectionError.
func (c *Client) doRequest(ctx context.Context, method, endpoint, apiKey string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Klaviyo-API-Key "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Revision", c.revision)
	req.Header.Set("User-Agent", "klaviyo-bridge/"+Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &ConnectionError{Err: err}
	}

	return resp.StatusCode, respBody, nil
}

// ValidateKey checks the API key against the account-info endpoint.
// An empty key fails immediately with ErrMissingKey, no network call.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ErrMissingKey
	}

	status, body, err := c.doRequest(ctx, http.MethodGet, "/accounts/", apiKey, nil)
	if err != nil {
		return err
	}

	logger.Debug("credential check response", "status", status)

	if status != http.StatusOK {
		return &InvalidKeyError{Status: status, Detail: extractErrorDetail(body)}
	}
	return nil
}

// GetLists fetches all lists in the account, following cursor pagination.
// It is fail-soft: on any mid-fetch error the lists accumulated so far are
// returned alongside the error so the caller can still use partial data.
// Items missing an id or name are skipped.
func (c *Client) GetLists(ctx context.Context, apiKey string) ([]List, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	var lists []List
	cursor := ""

	for page := 0; ; page++ {
		if page >= maxListPages {
			logger.Warn("list fetch stopped at page cap, returning partial results",
				"pages", page, "lists", len(lists))
			return lists, nil
		}

		endpoint := "/lists/"
		if cursor != "" {
			endpoint += "?" + url.Values{"page[cursor]": {cursor}}.Encode()
		}

		status, body, err := c.doRequest(ctx, http.MethodGet, endpoint, apiKey, nil)
		if err != nil {
			return lists, err
		}
		if status != http.StatusOK {
			return lists, &APIError{Status: status, Detail: extractErrorDetail(body)}
		}

		var parsed listsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return lists, fmt.Errorf("failed to parse lists response: %w", err)
		}

		for _, item := range parsed.Data {
			if item.ID == "" || item.Attributes.Name == "" {
				continue
			}
			lists = append(lists, List{ID: item.ID, Name: item.Attributes.Name})
		}

		cursor = nextCursor(parsed.Links.Next)
		if cursor == "" {
			return lists, nil
		}
	}
}

// nextCursor extracts the page[cursor] query parameter from a links.next
// URL. An empty or unparseable link terminates pagination.
func nextCursor(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("page[cursor]")
}

// CreateOrUpdateProfile upserts a profile keyed by email. The remote treats
// POST /profiles/ as idempotent create-or-update, so repeating the call for
// the same email is safe.
func (c *Client) CreateOrUpdateProfile(ctx context.Context, apiKey string, attrs ProfileAttributes) error {
	payload := profileRequest{
		Data: profileData{
			Type:       "profile",
			Attributes: attrs,
		},
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/profiles/", apiKey, payload)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return &APIError{Status: status, Detail: extractErrorDetail(body)}
	}

	logger.Debug("profile created or updated", "email", attrs.Email, "status", status)
	return nil
}

// SubscribeToLists enqueues a bulk-subscription job for the given email and
// lists. 202 means the remote accepted the job and will process it
// asynchronously; no completion polling is performed.
func (c *Client) SubscribeToLists(ctx context.Context, apiKey, email string, listIDs, consent []string) error {
	payload := subscriptionRequest{
		Data: subscriptionData{
			Type: "profile-subscription-bulk-create-job",
			Attributes: subscriptionAttributes{
				Profiles: subscriptionProfiles{
					Data: []subscriptionProfile{
						{
							Type: "profile",
							Attributes: subscriptionProfileAttributes{
								Email:   email,
								Consent: consent,
							},
						},
					},
				},
				ListIDs: listIDs,
			},
		},
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, "/profile-subscription-bulk-create-jobs/", apiKey, payload)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return &APIError{Status: status, Detail: extractErrorDetail(body)}
	}

	logger.Debug("subscription job accepted", "email", email, "lists", strings.Join(listIDs, ","), "status", status)
	return nil
}
