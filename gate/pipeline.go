package gate

import (
	"net/http"

	"github.com/MrEthical07/arena/routes"
)

// Guard inspects a request and returns a decision. final stops the
// pipeline even when the decision is Allow.
type Guard func(r *http.Request) (d routes.Decision, final bool)

// Pipeline runs guards in order. The first guard that returns a non-Allow
// decision, or marks its decision final, decides.
type Pipeline []Guard

func (p Pipeline) Evaluate(r *http.Request) routes.Decision {
	for _, g := range p {
		d, final := g(r)
		if final || d.Kind != routes.Allow {
			return d
		}
	}
	return routes.AllowDecision()
}
