package store

import "github.com/meshapp/mesh-cache/internal/domain"

// Page contains skip/limit pagination parameters for store listings.
// The bounds are shared with the domain-level list slices.
type Page struct {
	Skip  int // Number of records to skip (defaults to 0)
	Limit int // Records per page (defaults to 50 with a maximum of 200)
}

// DefaultPage returns sensible defaults.
func DefaultPage() Page {
	return Page{Skip: 0, Limit: domain.DefaultPageLimit}
}

// Normalize checks and corrects pagination parameters in place.
func (p *Page) Normalize() {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = domain.DefaultPageLimit
	}
	if p.Limit > domain.MaxPageLimit {
		p.Limit = domain.MaxPageLimit
	}
}
