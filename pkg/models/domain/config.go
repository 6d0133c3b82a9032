package domain

import "fmt"

// ConfigProfile is a named section of the profiles file.
type ConfigProfile struct {
	Name      string
	WebsiteID string
	BaseURL   string
}

func (c ConfigProfile) String() string {
	if c.WebsiteID == "" {
		return c.Name
	}
	return fmt.Sprintf("%s:%s", c.Name, c.WebsiteID)
}
