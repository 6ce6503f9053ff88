package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ProfilePatch is a partial profile update. Only non-nil fields are merged.
type ProfilePatch struct {
	FirstName  *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	ProfileImg *string `json:"profileImg,omitempty" validate:"omitempty,url"`

	// contractor
	Qualification       *string    `json:"qualification,omitempty" validate:"omitempty,max=100"`
	Skills              *[]Skill   `json:"skills,omitempty" validate:"omitempty,unique=Skill,dive"`
	Availability        *string    `json:"availability,omitempty" validate:"omitempty,oneof='Full Time' 'Part Time' Other"`
	AvailabilityDetails *string    `json:"availabilityDetails,omitempty" validate:"omitempty,max=200"`
	WorkSite            *[]string  `json:"workSite,omitempty" validate:"omitempty,dive,min=1,max=40"`
	Location            *string    `json:"location,omitempty" validate:"omitempty,max=200"`
	CountryCode         *string    `json:"countryCode,omitempty" validate:"omitempty,max=60"`
	StateCode           *string    `json:"stateCode,omitempty" validate:"omitempty,max=60"`
	City                *string    `json:"city,omitempty" validate:"omitempty,max=100"`
	Summary             *string    `json:"summary,omitempty" validate:"omitempty,max=4000"`
	Projects            *[]Project `json:"projects,omitempty" validate:"omitempty,dive"`
	GithubURL           *string    `json:"githubUrl,omitempty" validate:"omitempty,url"`
	LinkedinURL         *string    `json:"linkedinUrl,omitempty" validate:"omitempty,url"`
	PortfolioURL        *string    `json:"portfolioUrl,omitempty" validate:"omitempty,url"`

	// recruiter
	CompanyName *string `json:"companyName,omitempty" validate:"omitempty,max=200"`
	Position    *string `json:"position,omitempty" validate:"omitempty,max=200"`
	CompanyURL  *string `json:"companyUrl,omitempty" validate:"omitempty,url"`
}

var ErrEmptyPatch = errors.New("nothing to update")

func (p ProfilePatch) Validate() error {
	return validate.Struct(p)
}

// Fields returns the document fields to merge into the stored profile. The
// composed location is refreshed when one of its parts changes.
func (p ProfilePatch) Fields(current Profile) (map[string]any, error) {
	out := map[string]any{}
	setStr(out, "firstName", p.FirstName)
	setStr(out, "lastName", p.LastName)
	setStr(out, "profileImg", p.ProfileImg)

	contractor := map[string]any{}
	setStr(contractor, "qualification", p.Qualification)
	setStr(contractor, "availability", p.Availability)
	setStr(contractor, "availabilityDetails", p.AvailabilityDetails)
	setStr(contractor, "location", p.Location)
	setStr(contractor, "countryCode", p.CountryCode)
	setStr(contractor, "stateCode", p.StateCode)
	setStr(contractor, "city", p.City)
	setStr(contractor, "summary", p.Summary)
	setStr(contractor, "otherInfo.githubUrl", p.GithubURL)
	setStr(contractor, "otherInfo.linkedinUrl", p.LinkedinURL)
	setStr(contractor, "otherInfo.portfolioUrl", p.PortfolioURL)
	if p.Skills != nil {
		skills := make([]any, 0, len(*p.Skills))
		for _, s := range *p.Skills {
			skills = append(skills, map[string]any{"skill": s.Skill})
		}
		contractor["skills"] = skills
	}
	if p.WorkSite != nil {
		contractor["workSite"] = append([]string{}, (*p.WorkSite)...)
	}
	if p.Projects != nil {
		projects := make([]any, 0, len(*p.Projects))
		for _, pr := range *p.Projects {
			m := map[string]any{"description": pr.Description}
			if pr.ProjectName != "" {
				m["projectName"] = pr.ProjectName
			}
			projects = append(projects, m)
		}
		contractor["projects"] = projects
	}

	recruiter := map[string]any{}
	setStr(recruiter, "companyName", p.CompanyName)
	setStr(recruiter, "position", p.Position)
	setStr(recruiter, "companyUrl", p.CompanyURL)

	switch current.Category {
	case CategoryContractor:
		if len(recruiter) > 0 {
			return nil, fmt.Errorf("fields %v do not apply to %s profiles", keys(recruiter), current.Category)
		}
		if p.Location == nil && (p.CountryCode != nil || p.StateCode != nil || p.City != nil) {
			merged := Contractor{}
			if current.Contractor != nil {
				merged = *current.Contractor
			}
			merged.Location = ""
			if p.CountryCode != nil {
				merged.CountryCode = *p.CountryCode
			}
			if p.StateCode != nil {
				merged.StateCode = *p.StateCode
			}
			if p.City != nil {
				merged.City = *p.City
			}
			contractor["location"] = merged.ComposedLocation()
		}
		for k, v := range contractor {
			out[k] = v
		}
	case CategoryRecruiter:
		if len(contractor) > 0 {
			return nil, fmt.Errorf("fields %v do not apply to %s profiles", keys(contractor), current.Category)
		}
		for k, v := range recruiter {
			out[k] = v
		}
	default:
		return nil, fmt.Errorf("unknown category %q", current.Category)
	}

	if len(out) == 0 {
		return nil, ErrEmptyPatch
	}
	return out, nil
}

func setStr(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
