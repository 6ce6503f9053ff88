// Package matching filters contractors against a search and scores the
// survivors by skill overlap.
package matching

import (
	"strings"

	"github.com/yoockh/techfinder/internal/models"
)

// Spec is the set of search criteria for one computation.
type Spec struct {
	Qualifications []string `json:"qualifications" mapstructure:"qualifications"`
	Skills         []string `json:"skills" mapstructure:"skills"`
	Country        string   `json:"country" mapstructure:"country"`
	State          string   `json:"state" mapstructure:"state"`
	City           string   `json:"city" mapstructure:"city"`
}

// Normalize trims every value and drops empty entries and repeated skills.
func (s Spec) Normalize() Spec {
	return Spec{
		Qualifications: compact(s.Qualifications),
		Skills:         compact(s.Skills),
		Country:        strings.TrimSpace(s.Country),
		State:          strings.TrimSpace(s.State),
		City:           strings.TrimSpace(s.City),
	}
}

func (s Spec) IsEmpty() bool {
	n := s.Normalize()
	return len(n.Qualifications) == 0 && len(n.Skills) == 0 && n.Country == "" && n.State == "" && n.City == ""
}

// Result is a contractor with its match percentage. PercentMatching is nil
// when no skill filter is active.
type Result struct {
	models.Profile
	PercentMatching *int `json:"percentMatching"`
}

// Step describes what one gate did to the candidate list.
type Step struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
	Dropped int    `json:"dropped"`
	Left    int    `json:"left"`
}

// Compute returns the matching contractors in input order.
func Compute(contractors []models.Profile, spec Spec) []Result {
	results, _ := Run(contractors, spec)
	return results
}

// Run applies every gate in order and scores the survivors. The input is
// not modified.
func Run(contractors []models.Profile, spec Spec) ([]Result, []Step) {
	spec = spec.Normalize()
	gates := Gates(spec)

	candidates := make([]models.Profile, 0, len(contractors))
	candidates = append(candidates, contractors...)

	steps := make([]Step, 0, len(gates))
	for _, g := range gates {
		initial := len(candidates)
		kept := candidates[:0:0]
		for _, p := range candidates {
			if g.Keep(p) {
				kept = append(kept, p)
			}
		}
		candidates = kept
		steps = append(steps, Step{
			Name:    g.Name(),
			Initial: initial,
			Dropped: initial - len(kept),
			Left:    len(kept),
		})
	}

	selected := toSet(spec.Skills)
	results := make([]Result, 0, len(candidates))
	for _, p := range candidates {
		results = append(results, Result{
			Profile:         p.Clone(),
			PercentMatching: Score(p.Contractor.SkillNames(), selected),
		})
	}
	return results, steps
}

// Score returns round(100 * overlap / |selected|), where overlap counts
// every skill entry whose name is selected. Nil when nothing is selected.
func Score(skills []string, selected map[string]struct{}) *int {
	if len(selected) == 0 {
		return nil
	}
	overlap := 0
	for _, s := range skills {
		if _, ok := selected[s]; ok {
			overlap++
		}
	}
	n := len(selected)
	// integer form of rounding half up
	pct := (200*overlap + n) / (2 * n)
	if pct > 100 {
		pct = 100
	}
	return &pct
}

// compact drops blank and repeated entries. Names are kept verbatim because
// contractor skills and qualifications are compared without trimming.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
