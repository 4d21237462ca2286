// Package prompt builds the provider-agnostic instruction payload for a
// viability analysis. The payload is deterministic: the same description and
// factor set always produce byte-identical text, so provider responses stay
// reproducible under test.
package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/feasai/viability-engine/internal/model"
)

// Payload is the finished instruction payload handed to provider adapters.
type Payload struct {
	Text    string
	Factors []model.FactorKind
}

// Hash returns the SHA-256 of the payload text, used as the response cache key.
func (p Payload) Hash() string {
	sum := sha256.Sum256([]byte(p.Text))
	return hex.EncodeToString(sum[:])
}

const header = `You are a senior technology and business consultant, pragmatic and critical.
Your goal is not to be optimistic but realistic. Weigh costs, data requirements
and non-technical alternatives. Your reputation depends on stopping clients
from investing in projects that are not viable.

Respond with ONLY a valid JSON object. No Markdown code fences, no text or
explanation outside the JSON object itself.`

const footer = `Scores are integers from 0 to 100 where 100 is the strongest possible rating.
The "verdict" field must be exactly one of: "highly viable", "viable with adjustments", "high risk", "not viable".
The "recommendations" array must contain 3 to 5 concrete, actionable steps.
Each radar value is an integer from 1 to 10 for the axis at the same position in "labels".`

// Build produces the instruction payload for one analysis request. It fails
// when the request carries no factors; callers apply their configured default
// factor set before building.
func Build(req model.AnalysisRequest) (Payload, error) {
	if len(req.Factors) == 0 {
		return Payload{}, eris.New("prompt: no factors requested")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\nPROJECT TO ANALYZE: ")
	b.WriteString(req.Description)
	b.WriteString("\n\nEvaluate exactly these factors:\n")
	for _, f := range req.Factors {
		fmt.Fprintf(&b, "- %s (%s)\n", f, model.FactorLabel(f))
	}

	b.WriteString("\nThe output JSON object must follow exactly this structure:\n\n{\n")
	b.WriteString("  \"title\": \"A short descriptive name for the project.\",\n")
	b.WriteString("  \"summary\": \"An executive summary of 2-4 sentences including the verdict and its main justification.\",\n")
	b.WriteString("  \"verdict\": \"One of: 'highly viable', 'viable with adjustments', 'high risk', 'not viable'.\",\n")
	b.WriteString("  \"factors\": {\n")
	for i, f := range req.Factors {
		fmt.Fprintf(&b, "    %q: {\"score\": <integer 0-100>, \"justification\": \"Brief reasoning for the %s score.\"}", f, model.FactorLabel(f))
		if i < len(req.Factors)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  },\n")
	b.WriteString("  \"overall_score\": <integer 0-100 weighing all factors>,\n")
	b.WriteString("  \"recommendations\": [\"3 to 5 concrete, actionable next steps.\"],\n")
	b.WriteString("  \"radar\": {\n")
	b.WriteString("    \"labels\": [")
	for i, l := range model.RadarLabels {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", l)
	}
	b.WriteString("],\n")
	b.WriteString("    \"values\": [<five integers 1-10, one per label>]\n")
	b.WriteString("  }\n}\n\n")
	b.WriteString(footer)

	return Payload{Text: b.String(), Factors: req.Factors}, nil
}
