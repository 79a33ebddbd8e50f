package logger

import "strings"

// RedactEmail masks an email address for safe logging, keeping up to two
// characters of the local part and the full domain:
// "john.doe@example.com" becomes "jo***@example.com".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) <= 2 {
		return "***@" + domain
	}
	return local[:2] + "***@" + domain
}

// RedactSecret masks an API key or other credential, keeping only a short
// prefix so operators can tell which key was in play:
// "pk_abcdef123456" becomes "pk_abc***".
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 6 {
		return "***"
	}
	return secret[:6] + "***"
}
