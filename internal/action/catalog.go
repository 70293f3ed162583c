// Package action defines the closed catalog of research actions a run may
// take, and the dispatch registry that binds catalog entries to executors.
package action

import "fmt"

// Category groups actions for budgeting and sanitation decisions.
type Category string

const (
	CategoryBroad    Category = "broad"    // general web search
	CategoryImage    Category = "image"    // image-driven search
	CategoryVertical Category = "vertical" // domain-specific search
	CategoryFetch    Category = "fetch"    // page retrieval
	CategoryReflect  Category = "reflect"  // zero-cost reasoning step
)

// Canonical action names.
const (
	WebSearch          = "web_search"
	BingSearch         = "bing_search"
	DuckDuckGoSearch   = "duckduckgo_search"
	ReverseImageSearch = "reverse_image_search"
	VisualLensSearch   = "visual_lens_search"
	ImageSearch        = "image_search"
	PlacesSearch       = "places_search"
	NewsSearch         = "news_search"
	LodgingSearch      = "lodging_search"
	WebFetch           = "web_fetch"
	Think              = "think"
	ResearchComplete   = "research_complete"
)

// ErrUnknownAction is returned when a name is not in the catalog.
type ErrUnknownAction struct {
	Name string
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Name)
}

// Spec describes one catalog entry.
type Spec struct {
	Name     string
	Category Category
	Cost     int
}

// Catalog is the immutable set of actions available to a run.
type Catalog struct {
	specs []Spec
	byKey map[string]Spec
}

// DefaultSpecs returns the standard action set.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: WebSearch, Category: CategoryBroad, Cost: 1},
		{Name: BingSearch, Category: CategoryBroad, Cost: 1},
		{Name: DuckDuckGoSearch, Category: CategoryBroad, Cost: 1},
		{Name: ReverseImageSearch, Category: CategoryImage, Cost: 1},
		{Name: VisualLensSearch, Category: CategoryImage, Cost: 1},
		{Name: ImageSearch, Category: CategoryImage, Cost: 1},
		{Name: PlacesSearch, Category: CategoryVertical, Cost: 1},
		{Name: NewsSearch, Category: CategoryVertical, Cost: 1},
		{Name: LodgingSearch, Category: CategoryVertical, Cost: 1},
		{Name: WebFetch, Category: CategoryFetch, Cost: 1},
		{Name: Think, Category: CategoryReflect, Cost: 0},
		{Name: ResearchComplete, Category: CategoryReflect, Cost: 0},
	}
}

// NewCatalog validates the specs and builds the lookup table. Duplicate or
// malformed entries are configuration errors and fail construction.
func NewCatalog(specs []Spec) (*Catalog, error) {
	c := &Catalog{byKey: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("catalog entry with empty name")
		}
		if _, dup := c.byKey[s.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry: %s", s.Name)
		}
		switch s.Category {
		case CategoryBroad, CategoryImage, CategoryVertical, CategoryFetch, CategoryReflect:
		default:
			return nil, fmt.Errorf("catalog entry %s has unknown category %q", s.Name, s.Category)
		}
		if s.Cost < 0 {
			return nil, fmt.Errorf("catalog entry %s has negative cost", s.Name)
		}
		c.byKey[s.Name] = s
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// List returns every spec in declaration order.
func (c *Catalog) List() []Spec {
	out := make([]Spec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Lookup returns the spec for a name.
func (c *Catalog) Lookup(name string) (Spec, error) {
	s, ok := c.byKey[name]
	if !ok {
		return Spec{}, ErrUnknownAction{Name: name}
	}
	return s, nil
}

// Known reports whether a name is in the catalog.
func (c *Catalog) Known(name string) bool {
	_, ok := c.byKey[name]
	return ok
}

// CostOf returns the unit cost of an action, 0 if unknown.
func (c *Catalog) CostOf(name string) int {
	return c.byKey[name].Cost
}

// CategoryOf returns the category of an action, empty if unknown.
func (c *Catalog) CategoryOf(name string) Category {
	return c.byKey[name].Category
}
