package model

import "strings"

// ProviderKind identifies an LLM backend.
type ProviderKind string

const (
	ProviderGemini   ProviderKind = "gemini"
	ProviderCerebras ProviderKind = "cerebras"
	ProviderClaude   ProviderKind = "claude"
)

// KnownProviders lists every backend the engine can talk to, in the
// system default preference order.
var KnownProviders = []ProviderKind{
	ProviderGemini,
	ProviderCerebras,
	ProviderClaude,
}

// ParseProvider normalizes a user-supplied provider name. The second
// return reports whether the name is a known provider.
func ParseProvider(s string) (ProviderKind, bool) {
	k := ProviderKind(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range KnownProviders {
		if p == k {
			return p, true
		}
	}
	return "", false
}
