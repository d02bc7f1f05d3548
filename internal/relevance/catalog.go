package relevance

import (
	"fmt"
	"slices"
	"strings"
)

// CategoryProfile is the keyword and indicator configuration of one topic.
type CategoryProfile struct {
	ID                 string
	Name               string
	Description        string
	Keywords           []string
	PositiveIndicators []string
	NegativeIndicators []string
}

type compiledProfile struct {
	profile   CategoryProfile
	keywords  phraseSet
	positives phraseSet
	negatives phraseSet
}

// Catalog is the ordered, read-only set of category profiles.
type Catalog struct {
	order []string
	byID  map[string]*compiledProfile
}

// NewCatalog compiles profiles in the given order. IDs must be unique and
// non-empty.
func NewCatalog(profiles []CategoryProfile) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(profiles)),
		byID:  make(map[string]*compiledProfile, len(profiles)),
	}
	for _, p := range profiles {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, fmt.Errorf("category %q has no id", p.Name)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("duplicate category id %q", id)
		}
		p.ID = id
		p.Keywords = slices.Clone(p.Keywords)
		p.PositiveIndicators = slices.Clone(p.PositiveIndicators)
		p.NegativeIndicators = slices.Clone(p.NegativeIndicators)

		c.order = append(c.order, id)
		c.byID[id] = &compiledProfile{
			profile:   p,
			keywords:  newPhraseSet(p.Keywords),
			positives: newPhraseSet(p.PositiveIndicators),
			negatives: newPhraseSet(p.NegativeIndicators),
		}
	}
	return c, nil
}

// IDs returns category IDs in configuration order.
func (c *Catalog) IDs() []string { return slices.Clone(c.order) }

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.order) }

// Profile returns a copy of the profile for id.
func (c *Catalog) Profile(id string) (CategoryProfile, bool) {
	cp, ok := c.byID[id]
	if !ok {
		return CategoryProfile{}, false
	}
	p := cp.profile
	p.Keywords = slices.Clone(p.Keywords)
	p.PositiveIndicators = slices.Clone(p.PositiveIndicators)
	p.NegativeIndicators = slices.Clone(p.NegativeIndicators)
	return p, true
}

func (c *Catalog) compiled(id string) (*compiledProfile, bool) {
	cp, ok := c.byID[id]
	return cp, ok
}
