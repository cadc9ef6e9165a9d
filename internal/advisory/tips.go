package advisory

import "strings"

// DefaultNoTip is returned for crops missing from the table.
const DefaultNoTip = "No cultivation tip available for this crop."

// DefaultTips ship with the binary. Deployment config may override or extend
// them without touching the model.
var DefaultTips = map[string]string{
	"Wheat":  "Sow in well-drained loam after the monsoon and irrigate at crown-root initiation.",
	"Rice":   "Keep fields flooded 5 cm deep through tillering and drain a week before harvest.",
	"Millet": "Tolerates poor soil and drought; thin seedlings to 10 cm and weed early.",
}

// Table is a read-only crop → tip lookup.
type Table struct {
	tips     map[string]string
	fallback string
}

// NewTable merges overrides over DefaultTips. An empty fallback selects
// DefaultNoTip.
func NewTable(overrides map[string]string, fallback string) *Table {
	t := &Table{
		tips:     make(map[string]string, len(DefaultTips)+len(overrides)),
		fallback: fallback,
	}
	if t.fallback == "" {
		t.fallback = DefaultNoTip
	}
	for crop, tip := range DefaultTips {
		t.tips[normalize(crop)] = tip
	}
	for crop, tip := range overrides {
		if strings.TrimSpace(tip) == "" {
			continue
		}
		t.tips[normalize(crop)] = tip
	}
	return t
}

// TipFor never fails; unknown crops get the fallback text.
func (t *Table) TipFor(crop string) string {
	if tip, ok := t.tips[normalize(crop)]; ok {
		return tip
	}
	return t.fallback
}

func normalize(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}
