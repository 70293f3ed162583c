package action

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := NewCatalog(DefaultSpecs())
	if err != nil {
		t.Fatalf("default catalog failed validation: %v", err)
	}
	if got := len(c.List()); got != 12 {
		t.Fatalf("catalog size = %d, want 12", got)
	}
	if c.CostOf(Think) != 0 {
		t.Fatalf("think must be free, cost = %d", c.CostOf(Think))
	}
	if c.CostOf(ResearchComplete) != 0 || c.CategoryOf(ResearchComplete) != CategoryReflect {
		t.Fatalf("research_complete must be a free reflect action")
	}
	if c.CategoryOf(ReverseImageSearch) != CategoryImage {
		t.Fatalf("reverse_image_search category = %s", c.CategoryOf(ReverseImageSearch))
	}
	if c.CategoryOf(PlacesSearch) != CategoryVertical {
		t.Fatalf("places_search category = %s", c.CategoryOf(PlacesSearch))
	}
}

func TestUnknownActionLookup(t *testing.T) {
	c, err := NewCatalog(DefaultSpecs())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Lookup("teleport")
	var unknown ErrUnknownAction
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if unknown.Name != "teleport" {
		t.Fatalf("error carries wrong name: %s", unknown.Name)
	}
}

func TestCatalogValidation(t *testing.T) {
	cases := []struct {
		name  string
		specs []Spec
	}{
		{"duplicate", []Spec{
			{Name: "a", Category: CategoryBroad, Cost: 1},
			{Name: "a", Category: CategoryBroad, Cost: 1},
		}},
		{"empty name", []Spec{{Name: "", Category: CategoryBroad, Cost: 1}}},
		{"bad category", []Spec{{Name: "a", Category: "quantum", Cost: 1}}},
		{"negative cost", []Spec{{Name: "a", Category: CategoryBroad, Cost: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog(tc.specs); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
