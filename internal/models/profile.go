package models

import (
	"strings"
)

// Category is the discriminant of a profile and doubles as its collection name.
type Category string

const (
	CategoryContractor Category = "techs"
	CategoryRecruiter  Category = "recruiter"
)

func (c Category) Valid() bool {
	return c == CategoryContractor || c == CategoryRecruiter
}

func (c Category) String() string { return string(c) }

// Categories lists the mirrored collections in lookup order.
var Categories = []Category{CategoryContractor, CategoryRecruiter}

const (
	AvailabilityFullTime = "Full Time"
	AvailabilityPartTime = "Part Time"
	AvailabilityOther    = "Other"
)

// Profile is a contractor or recruiter profile. Exactly one of Contractor or
// Recruiter is set, matching Category.
type Profile struct {
	ID          string   `json:"id" mapstructure:"id"`
	IdentityRef string   `json:"firebaseUID" mapstructure:"firebaseUID"`
	Category    Category `json:"userType" mapstructure:"-"`
	FirstName   string   `json:"firstName" mapstructure:"firstName"`
	LastName    string   `json:"lastName" mapstructure:"lastName"`
	Email       string   `json:"email,omitempty" mapstructure:"email"`
	ProfileImg  string   `json:"profileImg,omitempty" mapstructure:"profileImg"`

	Contractor *Contractor `json:"contractor,omitempty" mapstructure:"-"`
	Recruiter  *Recruiter  `json:"recruiter,omitempty" mapstructure:"-"`
}

type Contractor struct {
	Qualification       string    `json:"qualification" mapstructure:"qualification"`
	Skills              []Skill   `json:"skills" mapstructure:"skills"`
	Availability        string    `json:"availability" mapstructure:"availability"`
	AvailabilityDetails string    `json:"availabilityDetails,omitempty" mapstructure:"availabilityDetails"`
	WorkSite            []string  `json:"workSite" mapstructure:"workSite"`
	Location            string    `json:"location,omitempty" mapstructure:"location"`
	CountryCode         string    `json:"countryCode,omitempty" mapstructure:"countryCode"`
	StateCode           string    `json:"stateCode,omitempty" mapstructure:"stateCode"`
	City                string    `json:"city,omitempty" mapstructure:"city"`
	Summary             string    `json:"summary,omitempty" mapstructure:"summary"`
	Projects            []Project `json:"projects,omitempty" mapstructure:"projects"`
	OtherInfo           Links     `json:"otherInfo" mapstructure:"otherInfo"`
}

type Skill struct {
	Skill string `json:"skill" mapstructure:"skill" validate:"required,max=60"`
}

type Project struct {
	ProjectName string `json:"projectName,omitempty" mapstructure:"projectName" validate:"max=120"`
	Description string `json:"description" mapstructure:"description" validate:"required,max=2000"`
}

type Links struct {
	GithubURL    string `json:"githubUrl,omitempty" mapstructure:"githubUrl"`
	LinkedinURL  string `json:"linkedinUrl,omitempty" mapstructure:"linkedinUrl"`
	PortfolioURL string `json:"portfolioUrl,omitempty" mapstructure:"portfolioUrl"`
}

type Recruiter struct {
	CompanyName string `json:"companyName,omitempty" mapstructure:"companyName"`
	Position    string `json:"position,omitempty" mapstructure:"position"`
	CompanyURL  string `json:"companyUrl,omitempty" mapstructure:"companyUrl"`
}

// ComposedLocation is the string the location filter matches against: the
// stored location when present, otherwise "city, state, country" without
// the empty parts.
func (c *Contractor) ComposedLocation() string {
	if c == nil {
		return ""
	}
	if s := strings.TrimSpace(c.Location); s != "" {
		return s
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{c.City, c.StateCode, c.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// SkillNames returns the skill names in profile order, duplicates included.
func (c *Contractor) SkillNames() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		out = append(out, s.Skill)
	}
	return out
}

// Clone returns a deep copy so callers can't alias store-owned slices.
func (p Profile) Clone() Profile {
	out := p
	if p.Contractor != nil {
		c := *p.Contractor
		c.Skills = append([]Skill(nil), p.Contractor.Skills...)
		c.WorkSite = append([]string{}, p.Contractor.WorkSite...)
		c.Projects = append([]Project(nil), p.Contractor.Projects...)
		out.Contractor = &c
	}
	if p.Recruiter != nil {
		r := *p.Recruiter
		out.Recruiter = &r
	}
	return out
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
