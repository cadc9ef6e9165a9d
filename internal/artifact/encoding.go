package artifact

import (
	"fmt"
	"sort"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"
)

// SoilEncoding maps soil labels to the integer codes the classifier was
// trained on. It must match training exactly, so it travels inside the
// model file.
type SoilEncoding map[string]int

// DefaultSoilEncoding is used when a model file carries no encoding.
func DefaultSoilEncoding() SoilEncoding {
	return SoilEncoding{"Clay": 0, "Loamy": 1, "Sandy": 2}
}

// Encode returns the code for soilType or an InvalidSoilType error.
func (e SoilEncoding) Encode(soilType string) (int, error) {
	code, ok := e[soilType]
	if !ok {
		return 0, models.InvalidSoilType(soilType)
	}
	return code, nil
}

// Labels lists the accepted soil labels in code order.
func (e SoilEncoding) Labels() []string {
	labels := make([]string, 0, len(e))
	for label := range e {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return e[labels[i]] < e[labels[j]] })
	return labels
}

func (e SoilEncoding) validate() error {
	if len(e) == 0 {
		return fmt.Errorf("soil encoding is empty")
	}
	seen := make(map[int]string, len(e))
	for label, code := range e {
		if label == "" {
			return fmt.Errorf("soil encoding has an empty label")
		}
		if code < 0 {
			return fmt.Errorf("soil %q has negative code %d", label, code)
		}
		if other, dup := seen[code]; dup {
			return fmt.Errorf("soils %q and %q share code %d", other, label, code)
		}
		seen[code] = label
	}
	return nil
}

func (e SoilEncoding) clone() SoilEncoding {
	out := make(SoilEncoding, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
