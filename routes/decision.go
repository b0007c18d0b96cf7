package routes

import "encoding/json"

// DecisionKind is the outcome of a guard.
type DecisionKind int

const (
	// Allow lets the request or navigation proceed.
	Allow DecisionKind = iota
	// Redirect sends the visitor to Decision.Location.
	Redirect
	// Wait means the authoritative session state is not known yet; nothing
	// may be rendered and no redirect may be issued.
	Wait
)

func (k DecisionKind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Wait:
		return "wait"
	}
	return "unknown"
}

// Decision is derived per request and never stored.
type Decision struct {
	Kind     DecisionKind `json:"-"`
	Location string       `json:"location,omitempty"`
}

func AllowDecision() Decision { return Decision{Kind: Allow} }

func WaitDecision() Decision { return Decision{Kind: Wait} }

func RedirectTo(location string) Decision {
	return Decision{Kind: Redirect, Location: location}
}

func (d Decision) IsRedirect() bool { return d.Kind == Redirect }

func (d Decision) MarshalJSON() ([]byte, error) {
	type wire struct {
		Decision string `json:"decision"`
		Location string `json:"location,omitempty"`
	}
	return json.Marshal(wire{Decision: d.Kind.String(), Location: d.Location})
}
