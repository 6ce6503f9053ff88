package matching

import (
	"strings"

	"github.com/yoockh/techfinder/internal/models"
)

// Gate is one filtering stage. Gates run in order with AND semantics.
type Gate interface {
	Name() string
	Keep(p models.Profile) bool
}

type gate struct {
	name string
	keep func(models.Profile) bool
}

func (g gate) Name() string               { return g.name }
func (g gate) Keep(p models.Profile) bool { return g.keep(p) }

// Gates builds the pipeline for a normalized spec.
func Gates(spec Spec) []Gate {
	return []Gate{
		availabilityGate(),
		qualificationGate(spec.Qualifications),
		skillGate(spec.Skills),
		locationGate(spec.Country, spec.State, spec.City),
	}
}

// availabilityGate admits only Full Time and Part Time contractors.
func availabilityGate() Gate {
	return gate{name: "availability", keep: func(p models.Profile) bool {
		if p.Contractor == nil {
			return false
		}
		switch p.Contractor.Availability {
		case models.AvailabilityFullTime, models.AvailabilityPartTime:
			return true
		default:
			return false
		}
	}}
}

func qualificationGate(qualifications []string) Gate {
	allowed := toSet(qualifications)
	return gate{name: "qualification", keep: func(p models.Profile) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[p.Contractor.Qualification]
		return ok
	}}
}

// skillGate passes contractors with at least one selected skill.
func skillGate(skills []string) Gate {
	selected := toSet(skills)
	return gate{name: "skills", keep: func(p models.Profile) bool {
		if len(selected) == 0 {
			return true
		}
		for _, s := range p.Contractor.Skills {
			if _, ok := selected[s.Skill]; ok {
				return true
			}
		}
		return false
	}}
}

// locationGate requires every non-empty fragment to appear, ignoring case,
// in the composed location.
func locationGate(fragments ...string) Gate {
	var needles []string
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			needles = append(needles, strings.ToLower(f))
		}
	}
	return gate{name: "location", keep: func(p models.Profile) bool {
		if len(needles) == 0 {
			return true
		}
		loc := strings.ToLower(p.Contractor.ComposedLocation())
		for _, n := range needles {
			if !strings.Contains(loc, n) {
				return false
			}
		}
		return true
	}}
}
