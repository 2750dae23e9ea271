// Package domain defines the core types shared by the cache-sync layers:
// query identities, mutation records, invalidation instructions, the upstream
// catalog DTOs, and the GORM models for the notification log.
//
// This file defines QueryKey and its filter signature. A QueryKey identifies
// one cached, parameterized read (entity type + filters). The signature is a
// canonical encoding of the filters so that logically identical filter sets
// always map to the same cache entry.
package domain

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/recipe-cache-sync/internal/utils"
)

// EntityType names the family of a cached query.
type EntityType string

const (
	EntityRecipeList    EntityType = "recipe-list"
	EntityRecipeStats   EntityType = "recipe-stats"
	EntityMealPlanList  EntityType = "meal-plan-list"
	EntityMealPlanStats EntityType = "meal-plan-stats"
)

// Valid reports whether e is one of the known entity types.
func (e EntityType) Valid() bool {
	switch e {
	case EntityRecipeList, EntityRecipeStats, EntityMealPlanList, EntityMealPlanStats:
		return true
	}
	return false
}

// IsStats reports whether e holds aggregate counters rather than a list.
func (e EntityType) IsStats() bool {
	return e == EntityRecipeStats || e == EntityMealPlanStats
}

// Resource returns the resource that owns entity type e.
func (e EntityType) Resource() Resource {
	switch e {
	case EntityMealPlanList, EntityMealPlanStats:
		return ResourceMealPlan
	default:
		return ResourceRecipe
	}
}

// Resource is a mutable upstream entity kind.
type Resource string

const (
	ResourceRecipe   Resource = "recipe"
	ResourceMealPlan Resource = "meal-plan"
)

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool { return r == ResourceRecipe || r == ResourceMealPlan }

// ListEntity returns the list entity type backed by r.
func (r Resource) ListEntity() EntityType {
	if r == ResourceMealPlan {
		return EntityMealPlanList
	}
	return EntityRecipeList
}

// StatsEntity returns the aggregate entity type backed by r.
func (r Resource) StatsEntity() EntityType {
	if r == ResourceMealPlan {
		return EntityMealPlanStats
	}
	return EntityRecipeStats
}

// EntityTypes returns every entity type a mutation of r can affect.
func (r Resource) EntityTypes() []EntityType {
	return []EntityType{r.ListEntity(), r.StatsEntity()}
}

// Filter holds the parameters of a list query. Zero values mean "not set".
type Filter struct {
	Approved *bool
	Page     int
	Limit    int
	Search   string
}

// Signature returns the canonical, order-independent encoding of f.
//
// Rules:
//   - unset fields are omitted, so {} and {page:0} share a signature
//   - parameters are sorted by name (url.Values.Encode sorts keys)
//   - the search term is NFC-normalized, case-folded, trimmed and has its
//     internal whitespace collapsed
func (f Filter) Signature() string {
	v := url.Values{}
	if f.Approved != nil {
		v.Set("approved", strconv.FormatBool(*f.Approved))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if s := NormalizeSearch(f.Search); s != "" {
		v.Set("search", s)
	}
	return v.Encode()
}

// Params returns f as upstream query parameters (same canonical form).
func (f Filter) Params() url.Values {
	v, _ := url.ParseQuery(f.Signature())
	return v
}

// NormalizeSearch canonicalizes a free-text search term.
func NormalizeSearch(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers are stateful; build one per call so this stays goroutine-safe.
	return cases.Fold().String(norm.NFC.String(s))
}

// ErrInvalidFilter is returned when a filter parameter cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter parameter")

// FilterFromParams builds a Filter from loosely typed parameters (query
// strings, JSON objects). Unknown keys are ignored; blank values are unset.
func FilterFromParams(params map[string]string) (Filter, error) {
	var f Filter
	for k, raw := range params {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "approved":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return Filter{}, ErrInvalidFilter
			}
			f.Approved = &b
		case "page":
			n, err := utils.NonNegative(val)
			if err != nil {
				return Filter{}, ErrInvalidFilter
			}
			f.Page = n
		case "limit":
			n, err := utils.NonNegative(val)
			if err != nil {
				return Filter{}, ErrInvalidFilter
			}
			f.Limit = n
		case "search":
			f.Search = val
		}
	}
	return f, nil
}

// QueryKey identifies a cached read.
type QueryKey struct {
	Entity    EntityType `json:"entity"`
	Signature string     `json:"signature"`
}

// NewQueryKey builds the key for entity e filtered by f.
func NewQueryKey(e EntityType, f Filter) QueryKey {
	return QueryKey{Entity: e, Signature: f.Signature()}
}

// StatsKey returns the canonical (unfiltered) stats key of resource r.
func StatsKey(r Resource) QueryKey {
	return QueryKey{Entity: r.StatsEntity()}
}

// String renders the key as "<entity>?<signature>" (or just the entity when
// unfiltered). The form is stable and is used as the store's map key.
func (k QueryKey) String() string {
	if k.Signature == "" {
		return string(k.Entity)
	}
	return string(k.Entity) + "?" + k.Signature
}

// Filter decodes the signature back into a Filter.
func (k QueryKey) Filter() Filter {
	v, _ := url.ParseQuery(k.Signature)
	params := make(map[string]string, len(v))
	for name := range v {
		params[name] = v.Get(name)
	}
	f, _ := FilterFromParams(params)
	return f
}

// ErrInvalidQueryKey is returned by ParseQueryKey for malformed input.
var ErrInvalidQueryKey = errors.New("invalid query key")

// ParseQueryKey parses the String form of a key. The signature part is
// re-canonicalized, so "recipe-list?page=1&approved=false" and
// "recipe-list?approved=false&page=1" parse to the same key.
func ParseQueryKey(s string) (QueryKey, error) {
	entity, rawQuery, _ := strings.Cut(strings.TrimSpace(s), "?")
	e := EntityType(entity)
	if !e.Valid() {
		return QueryKey{}, ErrInvalidQueryKey
	}
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		return QueryKey{}, ErrInvalidQueryKey
	}
	params := make(map[string]string, len(v))
	for name := range v {
		params[name] = v.Get(name)
	}
	f, err := FilterFromParams(params)
	if err != nil {
		return QueryKey{}, ErrInvalidQueryKey
	}
	return NewQueryKey(e, f), nil
}
