package domain

import (
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestFilterSignature_StableUnderParamOrder(t *testing.T) {
	a, err := FilterFromParams(map[string]string{"approved": "false", "page": "1", "limit": "20", "search": "Kale"})
	if err != nil {
		t.Fatalf("FilterFromParams: %v", err)
	}
	b, err := FilterFromParams(map[string]string{"search": "kale", "limit": "20", "page": "1", "approved": "false"})
	if err != nil {
		t.Fatalf("FilterFromParams: %v", err)
	}
	if a.Signature() != b.Signature() {
		t.Fatalf("signatures differ: %q vs %q", a.Signature(), b.Signature())
	}
	if want := "approved=false&limit=20&page=1&search=kale"; a.Signature() != want {
		t.Fatalf("signature = %q; want %q", a.Signature(), want)
	}
}

func TestFilterSignature_OmitsUnsetFields(t *testing.T) {
	if got := (Filter{}).Signature(); got != "" {
		t.Fatalf("empty filter signature = %q; want empty", got)
	}
	if got := (Filter{Page: 0, Limit: 0, Search: "   "}).Signature(); got != "" {
		t.Fatalf("zero-valued filter signature = %q; want empty", got)
	}
	// approved=false is a real filter, not an unset one.
	if got := (Filter{Approved: boolPtr(false)}).Signature(); got != "approved=false" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeSearch(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"   ":              "",
		"Chicken   Soup":   "chicken soup",
		"\tchicken\nsoup ": "chicken soup",
		"CAF\u00c9":        "caf\u00e9",
		"cafe\u0301":       "caf\u00e9", // decomposed e + combining acute, NFC composes it
	}
	for in, want := range cases {
		if got := NormalizeSearch(in); got != want {
			t.Errorf("NormalizeSearch(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestFilterFromParams_Invalid(t *testing.T) {
	bad := []map[string]string{
		{"approved": "maybe"},
		{"page": "x"},
		{"page": "-1"},
		{"limit": "ten"},
	}
	for _, p := range bad {
		if _, err := FilterFromParams(p); err != ErrInvalidFilter {
			t.Errorf("FilterFromParams(%v) err = %v; want ErrInvalidFilter", p, err)
		}
	}
	// Unknown keys and blanks are ignored.
	f, err := FilterFromParams(map[string]string{"sort": "name", "approved": " "})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.Approved != nil || f.Signature() != "" {
		t.Fatalf("expected empty filter, got %+v", f)
	}
}

func TestQueryKey_StringAndParseRoundTrip(t *testing.T) {
	k := NewQueryKey(EntityRecipeList, Filter{Approved: boolPtr(true), Page: 2, Search: "Tofu Bowl"})
	if got, want := k.String(), "recipe-list?approved=true&page=2&search=tofu+bowl"; got != want {
		t.Fatalf("String() = %q; want %q", got, want)
	}
	parsed, err := ParseQueryKey("recipe-list?search=TOFU%20bowl&page=2&approved=true")
	if err != nil {
		t.Fatalf("ParseQueryKey: %v", err)
	}
	if parsed != k {
		t.Fatalf("parsed = %+v; want %+v", parsed, k)
	}

	stats := StatsKey(ResourceRecipe)
	if stats.String() != "recipe-stats" {
		t.Fatalf("stats key String() = %q", stats.String())
	}
	if p, err := ParseQueryKey("recipe-stats"); err != nil || p != stats {
		t.Fatalf("ParseQueryKey(stats) = %+v, %v", p, err)
	}

	f := k.Filter()
	if f.Approved == nil || !*f.Approved || f.Page != 2 || f.Search != "tofu bowl" {
		t.Fatalf("Filter() = %+v", f)
	}
}

func TestParseQueryKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "recipes", "recipe-list?page=abc", "nope?x=1"} {
		if _, err := ParseQueryKey(s); err != ErrInvalidQueryKey {
			t.Errorf("ParseQueryKey(%q) err = %v; want ErrInvalidQueryKey", s, err)
		}
	}
}

func TestResourceEntityMapping(t *testing.T) {
	if got := ResourceRecipe.EntityTypes(); len(got) != 2 || got[0] != EntityRecipeList || got[1] != EntityRecipeStats {
		t.Fatalf("recipe entity types = %v", got)
	}
	if got := ResourceMealPlan.EntityTypes(); got[0] != EntityMealPlanList || got[1] != EntityMealPlanStats {
		t.Fatalf("meal-plan entity types = %v", got)
	}
	for _, e := range []EntityType{EntityRecipeList, EntityRecipeStats} {
		if e.Resource() != ResourceRecipe {
			t.Errorf("%s.Resource() = %s", e, e.Resource())
		}
	}
	for _, e := range []EntityType{EntityMealPlanList, EntityMealPlanStats} {
		if e.Resource() != ResourceMealPlan {
			t.Errorf("%s.Resource() = %s", e, e.Resource())
		}
	}
	if !EntityRecipeStats.IsStats() || EntityRecipeList.IsStats() {
		t.Fatalf("IsStats mismatch")
	}
	if EntityType("users").Valid() || Resource("users").Valid() {
		t.Fatalf("unknown values must be invalid")
	}
}
