package adapter

import (
	"strings"

	"github.com/dreygur/shipsync/internal/features/couriers/domain"
)

// normalizeRaw folds a raw provider status (or event name) to the single
// lower_snake form the translator tables are keyed by. All raw-status
// comparisons happen through this; adapters never compare raw strings
// elsewhere.
func normalizeRaw(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// statusTable is one provider's raw → normalized mapping. A lookup is a
// total function: unknown values fall through to the table default, which
// is never a terminal state.
type statusTable struct {
	// entries maps normalized raw values to shipment statuses.
	entries map[string]domain.NormalizedStatus
	// fallback is the conservative default for unknown raw values.
	fallback domain.NormalizedStatus
}

// translate maps a raw status and reports whether it was a known value.
func (t statusTable) translate(raw string) (domain.NormalizedStatus, bool) {
	if status, ok := t.entries[normalizeRaw(raw)]; ok {
		return status, true
	}
	return t.fallback, false
}
