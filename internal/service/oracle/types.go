package oracle

import "fmt"

// Fixed answers returned in place of the model's reply when the call fails.
const (
	FallbackUnclear      = "The stars are unclear. Please try again later."
	FallbackDisconnected = "Failed to connect to the cosmos."
)

type Kind int

const (
	Success Kind = iota
	// UpstreamError means the endpoint answered with a non-200 status.
	UpstreamError
	// TransportError covers connection failures, timeouts and unreadable responses.
	TransportError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case UpstreamError:
		return "upstream_error"
	case TransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the outcome of a single oracle call.
type Result struct {
	Kind       Kind
	Text       string
	StatusCode int
	Err        error
}

// Answer returns the text shown to the user, folding failures to the fallback messages.
func (r Result) Answer() string {
	switch r.Kind {
	case Success:
		return r.Text
	case UpstreamError:
		return FallbackUnclear
	default:
		return FallbackDisconnected
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}
