package fetch

// Kind enumerates the possible fetch results.
type Kind int

const (
	// KindFailed is a hard failure. It is the zero value so that an
	// uninitialized Outcome never reads as success.
	KindFailed Kind = iota

	// KindSuccess is an HTTP 200 response.
	KindSuccess

	// KindThrottled is an HTTP 429 response.
	KindThrottled
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindThrottled:
		return "throttled"
	default:
		return "failed"
	}
}

// Outcome is the classified result of one fetch.
// Body is set only for KindSuccess; Reason only for KindFailed.
type Outcome struct {
	Kind       Kind
	StatusCode int
	Body       []byte
	Reason     string
}

// Success builds a successful outcome.
func Success(body []byte) Outcome {
	return Outcome{Kind: KindSuccess, StatusCode: 200, Body: body}
}

// Throttled builds a throttled outcome.
func Throttled() Outcome {
	return Outcome{Kind: KindThrottled, StatusCode: 429}
}

// Failed builds a hard-failure outcome.
func Failed(status int, reason string) Outcome {
	return Outcome{Kind: KindFailed, StatusCode: status, Reason: reason}
}

// OK reports whether the outcome carries a usable body.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}
