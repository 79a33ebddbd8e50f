package feed

import (
	"encoding/json"
	"net/mail"
	"time"
)

// Feed is one form-to-Klaviyo mapping configuration. A feed belongs to one
// form and is only usable when it maps an email field and selects a list.
type Feed struct {
	ID        string    `json:"id"`
	FormID    string    `json:"form_id"`
	Active    bool      `json:"active"`
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta holds the operator-edited mapping settings, persisted as JSONB.
// Standard field values are form field IDs, not submitted values.
type Meta struct {
	FeedName         string             `json:"feed_name"`
	ListID           string             `json:"lists"`
	Email            string             `json:"email"`
	FirstName        string             `json:"first_name,omitempty"`
	LastName         string             `json:"last_name,omitempty"`
	PhoneNumber      string             `json:"phone_number,omitempty"`
	Organization     string             `json:"organization,omitempty"`
	Title            string             `json:"title,omitempty"`
	CustomProperties []PropertyMapping  `json:"custom_properties,omitempty"`
	Tags             string             `json:"tags,omitempty"`
	Condition        *ConditionSettings `json:"feed_condition,omitempty"`
}

// PropertyMapping maps a Klaviyo custom property name to a form field ID.
//
// Two wire shapes are accepted: the current object form
// {"key":"Favorite Color","value":"3"} and the legacy single-entry map form
// {"Favorite Color":"3"} written by older saved configurations. Both
// normalize to Key/Value here so nothing downstream ever sees the old shape.
type PropertyMapping struct {
	Key   string
	Value string
}

// UnmarshalJSON normalizes both accepted shapes at the decoding boundary.
func (m *PropertyMapping) UnmarshalJSON(data []byte) error {
	var obj struct {
		Key   *string `json:"key"`
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Key != nil && obj.Value != nil {
		m.Key = *obj.Key
		m.Value = *obj.Value
		return nil
	}

	// Legacy shape: a map with exactly one entry, name → field ID.
	var legacy map[string]string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	for k, v := range legacy {
		m.Key = k
		m.Value = v
		break
	}
	return nil
}

// MarshalJSON always writes the canonical object form.
func (m PropertyMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{Key: m.Key, Value: m.Value})
}

// Submission is one form submission: an immutable field-id → value record.
type Submission struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Value returns the submitted value for a field, or "" when absent.
func (s Submission) Value(fieldID string) string {
	return s.Fields[fieldID]
}

// Form is the schema the feed and submission belong to. The bridge only
// needs its identity; field definitions live with the host form builder.
type Form struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListChoice is one {label, value} entry for the list-selection dropdown.
type ListChoice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// IsValidEmail reports whether the address is syntactically valid. Display
// names ("Ada <a@b.com>") are rejected; only a bare address passes.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
