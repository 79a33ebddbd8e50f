package klaviyo

import "encoding/json"

// List is one recipient list in the Klaviyo account.
type List struct {
	ID   string
	Name string
}

// ProfileAttributes is the attribute block of a Klaviyo profile, keyed by
// email. Optional fields are omitted entirely when empty rather than sent
// as empty strings.
type ProfileAttributes struct {
	Email        string         `json:"email"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	PhoneNumber  string         `json:"phone_number,omitempty"`
	Organization string         `json:"organization,omitempty"`
	Title        string         `json:"title,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// profileRequest is the JSON:API envelope for POST /profiles/.
type profileRequest struct {
	Data profileData `json:"data"`
}

type profileData struct {
	Type       string            `json:"type"`
	Attributes ProfileAttributes `json:"attributes"`
}

// subscriptionRequest is the JSON:API envelope for
// POST /profile-subscription-bulk-create-jobs/.
type subscriptionRequest struct {
	Data subscriptionData `json:"data"`
}

type subscriptionData struct {
	Type       string                 `json:"type"`
	Attributes subscriptionAttributes `json:"attributes"`
}

type subscriptionAttributes struct {
	Profiles subscriptionProfiles `json:"profiles"`
	ListIDs  []string             `json:"list_ids"`
}

type subscriptionProfiles struct {
	Data []subscriptionProfile `json:"data"`
}

type subscriptionProfile struct {
	Type       string                        `json:"type"`
	Attributes subscriptionProfileAttributes `json:"attributes"`
}

type subscriptionProfileAttributes struct {
	Email   string   `json:"email"`
	Consent []string `json:"consent,omitempty"`
}

// listsResponse is the JSON:API payload of GET /lists/.
type listsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// errorResponse is Klaviyo's error envelope: a JSON body with an errors
// array whose elements carry either a detail or a message string.
type errorResponse struct {
	Errors []struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	} `json:"errors"`
}

// extractErrorDetail pulls the best human-readable detail out of an error
// response body. Precedence: first error's detail, else its message, else "".
func extractErrorDetail(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	if len(er.Errors) == 0 {
		return ""
	}
	if er.Errors[0].Detail != "" {
		return er.Errors[0].Detail
	}
	return er.Errors[0].Message
}
