// Package classify assigns a topical category to an analysis request from
// keyword rules. Rules ship embedded and can be swapped out with a YAML file
// at runtime.
package classify

import (
	_ "embed"
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/feasai/viability-engine/internal/model"
)

//go:embed rules.yaml
var defaultRules []byte

type rule struct {
	Category model.Category `yaml:"category"`
	Keywords []string       `yaml:"keywords"`
}

type rulesDoc struct {
	Rules []rule `yaml:"rules"`
}

// Classifier matches descriptions against ordered keyword rules. The first
// rule with a hit wins, so the rules file lists the most specific categories
// first. Immutable after construction.
type Classifier struct {
	rules []rule
}

// New builds a classifier from the embedded default rules.
func New() (*Classifier, error) {
	return fromYAML(defaultRules)
}

// NewFromFile builds a classifier from a YAML rules file, replacing the
// embedded defaults entirely.
func NewFromFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read rules file %s", path)
	}
	return fromYAML(data)
}

func fromYAML(data []byte) (*Classifier, error) {
	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "classify: parse rules")
	}
	if len(doc.Rules) == 0 {
		return nil, eris.New("classify: rules document has no rules")
	}
	for i := range doc.Rules {
		r := &doc.Rules[i]
		if !model.KnownCategory(r.Category) {
			return nil, eris.Errorf("classify: unknown category %q in rules", r.Category)
		}
		for j, kw := range r.Keywords {
			r.Keywords[j] = fold(kw)
		}
	}
	return &Classifier{rules: doc.Rules}, nil
}

// Classify returns the category for a project description. Categories are
// scanned in rule order; the first one with at least one keyword hit wins,
// and no hit at all falls through to automation.
func (c *Classifier) Classify(description string) model.Category {
	text := fold(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category
			}
		}
	}
	return model.CategoryAutomation
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics so "Automatización" and
// "automatizacion" compare equal.
func fold(s string) string {
	out, _, err := transform.String(foldChain, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
