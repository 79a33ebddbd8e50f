package feed

import (
	"html"
	"strings"

	"github.com/ignite/klaviyo-bridge/internal/klaviyo"
	"github.com/microcosm-cc/bluemonday"
)

// TagsProperty is the reserved Klaviyo property name for profile tags.
const TagsProperty = "$tags"

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize normalizes a submitted value to plain text: markup is stripped,
// control bytes removed, surrounding whitespace trimmed. Defensive
// normalization only, not an output-encoding step.
func Sanitize(value string) string {
	clean := strictPolicy.Sanitize(value)
	// bluemonday entity-escapes the surviving text; undo that so the value
	// stored on the profile reads as the user typed it.
	clean = html.UnescapeString(clean)
	clean = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}

// BuildProfileAttributes maps a submission onto Klaviyo profile attributes
// according to the feed's mapping settings. The email must already be
// validated; it is copied in verbatim after sanitization.
//
// Standard fields are included only when mapped and non-empty. Custom
// properties follow the same rule, with one subtlety: only strict emptiness
// is skipped, so "0" and other falsy-looking values still go through.
func BuildProfileAttributes(f *Feed, sub Submission, email string) klaviyo.ProfileAttributes {
	attrs := klaviyo.ProfileAttributes{
		Email: Sanitize(email),
	}

	if v := mappedValue(f.Meta.FirstName, sub); v != "" {
		attrs.FirstName = v
	}
	if v := mappedValue(f.Meta.LastName, sub); v != "" {
		attrs.LastName = v
	}
	if v := mappedValue(f.Meta.PhoneNumber, sub); v != "" {
		attrs.PhoneNumber = v
	}
	if v := mappedValue(f.Meta.Organization, sub); v != "" {
		attrs.Organization = v
	}
	if v := mappedValue(f.Meta.Title, sub); v != "" {
		attrs.Title = v
	}

	properties := map[string]any{}

	for _, pm := range f.Meta.CustomProperties {
		if pm.Key == "" || pm.Value == "" {
			continue
		}
		value, ok := sub.Fields[pm.Value]
		if !ok || value == "" {
			continue
		}
		properties[Sanitize(pm.Key)] = Sanitize(value)
	}

	if tags := ParseTags(f.Meta.Tags); len(tags) > 0 {
		properties[TagsProperty] = tags
	}

	if len(properties) > 0 {
		attrs.Properties = properties
	}

	return attrs
}

// mappedValue resolves a standard-field mapping to its sanitized submitted
// value, or "" when the field is unmapped or empty.
func mappedValue(fieldID string, sub Submission) string {
	if fieldID == "" {
		return ""
	}
	return Sanitize(sub.Value(fieldID))
}

// ParseTags splits a comma-separated tag string, trimming whitespace and
// dropping empty tokens. "vip, , new-customer,  " → ["vip","new-customer"].
func ParseTags(tags string) []string {
	if tags == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(tags, ",") {
		tok = Sanitize(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Consent derives the consent channels for a subscription. Email consent is
// implied by the submission itself; SMS consent is added only when the feed
// maps a phone field and this submission supplied a value for it.
func Consent(f *Feed, sub Submission) []string {
	consent := []string{"email"}
	if f.Meta.PhoneNumber != "" && sub.Value(f.Meta.PhoneNumber) != "" {
		consent = append(consent, "sms")
	}
	return consent
}
