package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeed(meta Meta) *Feed {
	return &Feed{ID: "feed-1", FormID: "form-1", Active: true, Meta: meta}
}

func TestBuildProfileAttributesStandardFields(t *testing.T) {
	f := testFeed(Meta{
		ListID:       "L1",
		Email:        "1",
		FirstName:    "2",
		LastName:     "3",
		PhoneNumber:  "4",
		Organization: "5",
		Title:        "6",
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{
		"1": "a@b.com",
		"2": "Ada",
		"3": "Lovelace",
		"4": "+15551234567",
		"5": "Analytical Engines Ltd",
		"6": "Countess",
	}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")

	assert.Equal(t, "a@b.com", attrs.Email)
	assert.Equal(t, "Ada", attrs.FirstName)
	assert.Equal(t, "Lovelace", attrs.LastName)
	assert.Equal(t, "+15551234567", attrs.PhoneNumber)
	assert.Equal(t, "Analytical Engines Ltd", attrs.Organization)
	assert.Equal(t, "Countess", attrs.Title)
	assert.Nil(t, attrs.Properties)
}

func TestBuildProfileAttributesOmitsEmptyAndUnmapped(t *testing.T) {
	f := testFeed(Meta{
		ListID:    "L1",
		Email:     "1",
		FirstName: "2", // mapped but empty in the submission
		// last_name not mapped at all
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{
		"1": "a@b.com",
		"2": "",
		"3": "Lovelace",
	}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")

	// Empty and unmapped fields are omitted, never sent as ""
	assert.Empty(t, attrs.FirstName)
	assert.Empty(t, attrs.LastName)
}

func TestBuildProfileAttributesCustomProperties(t *testing.T) {
	f := testFeed(Meta{
		ListID: "L1",
		Email:  "1",
		CustomProperties: []PropertyMapping{
			{Key: "Favorite Color", Value: "7"},
			{Key: "Newsletter Opt-In", Value: "8"},
			{Key: "", Value: "9"},      // empty property name: skipped
			{Key: "Orphan", Value: ""}, // empty field id: skipped
			{Key: "Missing", Value: "99"},
		},
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{
		"1": "a@b.com",
		"7": "blue",
		"8": "0", // falsy but not empty: must be kept
		"9": "ignored",
	}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")

	require.NotNil(t, attrs.Properties)
	assert.Equal(t, "blue", attrs.Properties["Favorite Color"])
	assert.Equal(t, "0", attrs.Properties["Newsletter Opt-In"])
	assert.NotContains(t, attrs.Properties, "Orphan")
	assert.NotContains(t, attrs.Properties, "Missing")
	assert.Len(t, attrs.Properties, 2)
}

func TestBuildProfileAttributesSkipsEmptyCustomValue(t *testing.T) {
	f := testFeed(Meta{
		ListID: "L1",
		Email:  "1",
		CustomProperties: []PropertyMapping{
			{Key: "Favorite Color", Value: "7"},
		},
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{
		"1": "a@b.com",
		"7": "",
	}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")
	assert.Nil(t, attrs.Properties)
}

func TestBuildProfileAttributesTags(t *testing.T) {
	f := testFeed(Meta{
		ListID: "L1",
		Email:  "1",
		Tags:   "vip, , new-customer,  ",
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{"1": "a@b.com"}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")

	require.NotNil(t, attrs.Properties)
	assert.Equal(t, []string{"vip", "new-customer"}, attrs.Properties[TagsProperty])
}

func TestBuildProfileAttributesSanitizesMarkup(t *testing.T) {
	f := testFeed(Meta{
		ListID:    "L1",
		Email:     "1",
		FirstName: "2",
		CustomProperties: []PropertyMapping{
			{Key: "Company", Value: "3"},
		},
	})
	sub := Submission{ID: "entry-1", Fields: map[string]string{
		"1": "a@b.com",
		"2": "<script>alert(1)</script>Ada",
		"3": "Smith & Sons",
	}}

	attrs := BuildProfileAttributes(f, sub, "a@b.com")

	assert.Equal(t, "Ada", attrs.FirstName)
	// Entities are unescaped back to plain text after markup stripping
	assert.Equal(t, "Smith & Sons", attrs.Properties["Company"])
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "vip", []string{"vip"}},
		{"messy", "vip, , new-customer,  ", []string{"vip", "new-customer"}},
		{"whitespace only", " ,  , ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.in))
		})
	}
}

func TestConsent(t *testing.T) {
	phoneFeed := testFeed(Meta{ListID: "L1", Email: "1", PhoneNumber: "4"})
	noPhoneFeed := testFeed(Meta{ListID: "L1", Email: "1"})

	withPhone := Submission{Fields: map[string]string{"1": "a@b.com", "4": "+15551234567"}}
	emptyPhone := Submission{Fields: map[string]string{"1": "a@b.com", "4": ""}}

	assert.Equal(t, []string{"email", "sms"}, Consent(phoneFeed, withPhone))
	assert.Equal(t, []string{"email"}, Consent(phoneFeed, emptyPhone))
	assert.Equal(t, []string{"email"}, Consent(noPhoneFeed, withPhone))
}

func TestSanitizeControlBytes(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("hello\x00 world\x07"))
	assert.Equal(t, "kept\ttab", Sanitize("kept\ttab"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.com"))
	assert.True(t, IsValidEmail("first.last+tag@example.co.uk"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("Ada <a@b.com>"))
}
