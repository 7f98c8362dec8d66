package tonal

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/melodraw/algorithms/chroma"
	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/scales"
)

// Unknown is returned whenever no key can be determined.
const Unknown = "unknown"

// ErrNoTemplates means the catalog cannot be used for matching.
var ErrNoTemplates = errors.New("no chroma templates available")

// KeyScore is one scale's match score.
type KeyScore struct {
	Name   string  `json:"name"`
	Family string  `json:"family"`
	Score  float64 `json:"score"`
}

// KeyMatcher scores a profile against every major and minor template of a
// catalog. A template scores the sum of the profile bins whose chromatic
// label belongs to the scale.
type KeyMatcher struct {
	catalog *scales.Catalog
	logger  logging.Logger
}

// NewKeyMatcher creates a matcher over catalog, which may be nil.
func NewKeyMatcher(catalog *scales.Catalog, logger logging.Logger) *KeyMatcher {
	return &KeyMatcher{
		catalog: catalog,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "key_matcher",
		}),
	}
}

// Ready checks the template structure matching relies on.
func (km *KeyMatcher) Ready() error {
	set := km.catalog.Templates()
	if set == nil {
		return fmt.Errorf("%w: catalog not loaded", ErrNoTemplates)
	}
	if len(set.Chromatic) != chroma.Bins {
		return fmt.Errorf("%w: chromatic root has %d labels", ErrNoTemplates, len(set.Chromatic))
	}
	if len(set.Major) == 0 && len(set.Minor) == 0 {
		return fmt.Errorf("%w: no major or minor scales", ErrNoTemplates)
	}
	return nil
}

// Scores returns every scale's score in matching order: major scales then
// minor scales, each in catalog order. It returns nil when not Ready.
func (km *KeyMatcher) Scores(p Profile) []KeyScore {
	if km.Ready() != nil {
		return nil
	}

	set := km.catalog.Templates()
	out := make([]KeyScore, 0, len(set.Major)+len(set.Minor))
	for i, fam := range set.Families() {
		family := []string{scales.Major, scales.Minor}[i]
		for _, sc := range fam {
			mask := make([]float64, chroma.Bins)
			for idx, label := range set.Chromatic {
				if slices.Contains(sc.Notes, label) {
					mask[idx] = 1
				}
			}
			out = append(out, KeyScore{
				Name:   sc.Name,
				Family: family,
				Score:  floats.Dot(p[:], mask),
			})
		}
	}
	return out
}

// Best returns the highest scoring scale. Ties keep the earlier scale. The
// second value is false, with the name set to Unknown, when nothing matched.
func (km *KeyMatcher) Best(p Profile) (KeyScore, bool) {
	if err := km.Ready(); err != nil {
		km.logger.Warn("Key matching skipped", logging.Fields{"reason": err.Error()})
		return KeyScore{Name: Unknown}, false
	}

	best := KeyScore{Name: Unknown, Score: math.Inf(-1)}
	for _, s := range km.Scores(p) {
		if s.Score > best.Score {
			best = s
		}
	}
	return best, best.Name != Unknown
}

// Match returns the best scale name, or Unknown.
func (km *KeyMatcher) Match(p Profile) string {
	best, _ := km.Best(p)
	return best.Name
}
