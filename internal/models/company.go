package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Source tells where a directory entry came from. Only manual entries may be
// deleted by an admin.
type Source string

const (
	SourceManual  Source = "manual"
	SourceScraped Source = "scraped"
)

const (
	maxCitiesShown   = 3
	unknownCityLabel = "Germany (Various)"
	logoBaseURL      = "https://logo.clearbit.com/"
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

type Company struct {
	ID        string   `json:"_id,omitempty"`
	Name      string   `json:"companyName"`
	Domain    string   `json:"domain"`
	Cities    []string `json:"cities"`
	OpenRoles int      `json:"openRoles"`
	Source    Source   `json:"source"`
}

// Key identifies the company, falling back to the name when the backend
// did not send an id
func (c Company) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

func (c Company) Deletable() bool {
	return c.Source == SourceManual
}

// Host returns the bare hostname of the company domain. Values with or
// without a scheme are accepted.
func (c Company) Host() string {
	d := strings.TrimSpace(c.Domain)
	if d == "" {
		return ""
	}

	raw := d
	if !schemePattern.MatchString(raw) {
		raw = "https://" + raw
	}

	if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}

	d = schemePattern.ReplaceAllString(d, "")
	return strings.SplitN(d, "/", 2)[0]
}

// WebsiteURL is the link opened from a directory card
func (c Company) WebsiteURL() string {
	d := strings.TrimSpace(c.Domain)
	if d == "" {
		return ""
	}
	if !schemePattern.MatchString(d) {
		d = "https://" + d
	}
	return d
}

func (c Company) LogoURL() string {
	host := c.Host()
	if host == "" {
		return ""
	}
	return logoBaseURL + host + "?size=128"
}

func (c Company) CitiesLabel() string {
	if len(c.Cities) == 0 {
		return unknownCityLabel
	}
	if len(c.Cities) > maxCitiesShown {
		return strings.Join(c.Cities[:maxCitiesShown], ", ")
	}
	return strings.Join(c.Cities, ", ")
}

func (c Company) OpenRolesLabel() string {
	switch {
	case c.OpenRoles <= 0:
		return ""
	case c.OpenRoles == 1:
		return "1 open role"
	default:
		return fmt.Sprintf("%d open roles", c.OpenRoles)
	}
}

// NewCompany is the admin "add company" form. Cities arrive as one
// comma-separated string, matching what the backend expects.
type NewCompany struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
	Cities string `json:"cities"`
}

func (n NewCompany) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("company name is required")
	}
	if strings.TrimSpace(n.Domain) == "" {
		return fmt.Errorf("domain is required")
	}
	return nil
}
