package sync

// Kind tags the outcome of a processing run. Every call site switches on
// the tag; there is no single slot meaning "true or a detailed failure".
type Kind string

const (
	// KindOK means the profile was upserted and the subscription job accepted.
	KindOK Kind = "ok"
	// KindSkipped means the feed condition was not met. Not a failure.
	KindSkipped Kind = "skipped"

	KindMissingCredentials Kind = "missing_credentials"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindConnectionError    Kind = "connection_error"
	KindAPIError           Kind = "api_error"
	KindInvalidField       Kind = "invalid_field"
)

// Result is the tagged outcome of one feed-processing run.
type Result struct {
	Kind Kind
	// Field names the feed setting at fault for KindInvalidField.
	Field string
	// Detail carries the best-available human-readable failure detail.
	Detail string
}

// OK reports whether the run completed the full two-phase sync.
func (r Result) OK() bool { return r.Kind == KindOK }

// Failed reports whether the run ended in a failure state. A skipped run
// is neither a success nor a failure.
func (r Result) Failed() bool { return r.Kind != KindOK && r.Kind != KindSkipped }

func ok() Result      { return Result{Kind: KindOK} }
func skipped() Result { return Result{Kind: KindSkipped} }

func failed(k Kind, detail string) Result {
	return Result{Kind: k, Detail: detail}
}

func fieldError(field, detail string) Result {
	return Result{Kind: KindInvalidField, Field: field, Detail: detail}
}
