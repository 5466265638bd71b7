package poster

// ErrorKind classifies a failed attempt for history and pacing decisions.
type ErrorKind string

const (
	ErrorNone         ErrorKind = ""
	ErrorEmptyContent ErrorKind = "empty_content"
	ErrorOversize     ErrorKind = "oversize"
	ErrorRateLimited  ErrorKind = "rate_limited"
	ErrorDuplicate    ErrorKind = "duplicate"
	ErrorProvider     ErrorKind = "provider"
	ErrorTransport    ErrorKind = "transport"
)

// Result is the outcome of one (text, account) attempt chain. Attempt
// never returns an error; every outcome lands here.
type Result struct {
	AccountNumber int       `json:"account_number"`
	Success       bool      `json:"success"`
	Simulated     bool      `json:"simulated,omitempty"`
	PostID        string    `json:"post_id,omitempty"`
	URL           string    `json:"url,omitempty"`
	ErrorKind     ErrorKind `json:"error_kind,omitempty"`

	// Text is the as-attempted text after any duplicate mutation. It is not
	// persisted with history (the dispatch-level text is); the failure queue
	// records it on terminal failure.
	Text string `json:"-"`
}
