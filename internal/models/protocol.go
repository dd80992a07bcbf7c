package models

import "strings"

// Protocol identifies one of the monitored lending/CDP protocols.
// The set is closed: every external name is normalized to one of these
// values at the input boundary, and all lookup tables are keyed by them.
type Protocol string

const (
	ProtocolAave     Protocol = "Aave"
	ProtocolCompound Protocol = "Compound"
	ProtocolMaker    Protocol = "MakerDAO"
)

// AllProtocols returns the monitored protocols in canonical order.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolAave, ProtocolCompound, ProtocolMaker}
}

// protocolAliases maps normalized fragments to protocols. Version suffixes
// ("v2", "v3") and organizational suffixes ("dao", "protocol") are stripped
// before matching, so "Aave V3", "aave-v2" and "MakerDAO" all resolve.
var protocolAliases = map[string]Protocol{
	"aave":     ProtocolAave,
	"compound": ProtocolCompound,
	"maker":    ProtocolMaker,
	"makerdao": ProtocolMaker,
}

// NormalizeProtocol resolves an external protocol name to its canonical
// Protocol. Matching is case-insensitive and tolerant of version and
// organizational suffixes. The second return value reports whether the name
// resolved; callers must treat an unresolved name as a zero-effect input,
// never as an error.
func NormalizeProtocol(name string) (Protocol, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	for _, suffix := range []string{"v1", "v2", "v3", "v4"} {
		key = strings.TrimSuffix(key, suffix)
	}
	key = strings.TrimSuffix(key, "protocol")

	if p, ok := protocolAliases[key]; ok {
		return p, true
	}
	// Substring fallback keeps inputs like "Aave Lending Market" resolving.
	for alias, p := range protocolAliases {
		if strings.Contains(key, alias) {
			return p, true
		}
	}
	return "", false
}
