// Read HTTP handlers.
//
// This file exposes the cached reads:
//   - GET /admin/recipes           (filtered, paginated list)
//   - GET /admin/stats             (recipe counters)
//   - GET /admin/meal-plans        (filtered, paginated list)
//   - GET /admin/meal-plans/stats  (meal-plan counters)
//   - GET /admin/cache/entries     (store snapshot)
//
// Every read goes through the query store. A failed refresh still serves the
// last good data when there is any; X-Cache-Status tells the client.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/querystore"
	"github.com/tbourn/recipe-cache-sync/internal/upstream"
)

// CacheEntry is one row of the cache snapshot.
type CacheEntry struct {
	Key       string            `json:"key"       example:"recipe-list?approved=false&page=1"`
	Status    querystore.Status `json:"status"    example:"fresh"`
	FetchedAt *time.Time        `json:"fetched_at,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// CacheEntriesResponse lists the cached entries.
type CacheEntriesResponse struct {
	Entries []CacheEntry `json:"entries"`
}

// listFilter builds a Filter from the approved/page/limit/search query
// parameters.
func listFilter(c *gin.Context) (domain.Filter, error) {
	params := map[string]string{}
	for _, name := range []string{"approved", "page", "limit", "search"} {
		if v, ok := c.GetQuery(name); ok {
			params[name] = v
		}
	}
	return domain.FilterFromParams(params)
}

// serve reads key through the store and writes the cached payload.
func (h *Handlers) serve(c *gin.Context, key domain.QueryKey) {
	e, err := h.cache.Get(c.Request.Context(), key)
	if err != nil && !e.HasData() {
		var se *upstream.StatusError
		if errors.As(err, &se) {
			fail(c, http.StatusBadGateway, ErrCodeUpstream, se.Error())
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "upstream unavailable")
		return
	}
	okCached(c, e, err)
}

func (h *Handlers) serveList(c *gin.Context, entity domain.EntityType) {
	f, err := listFilter(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidFilter, "approved must be a boolean; page and limit non-negative integers")
		return
	}
	h.serve(c, domain.NewQueryKey(entity, f))
}

// ListRecipes godoc
// @ID          listRecipes
// @Summary     List recipes (cached)
// @Description Returns one page of recipes through the shared query cache.
// @Tags        Recipes
// @Produce     json
//
// @Param       approved  query  bool    false "Approval filter"
// @Param       page      query  int     false "Page number"     minimum(0)
// @Param       limit     query  int     false "Items per page"  minimum(0)
// @Param       search    query  string  false "Free-text search"
//
// @Success     200  {object} domain.RecipePage
// @Header      200  {string} X-Cache-Status      "fresh, stale or error"
// @Header      200  {string} X-Cache-Fetched-At  "RFC3339 fetch time"
// @Failure     400  {object} handlers.ErrorResponse "Invalid filter"
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Router      /admin/recipes [get]
func (h *Handlers) ListRecipes(c *gin.Context) {
	h.serveList(c, domain.EntityRecipeList)
}

// RecipeStats godoc
// @ID          recipeStats
// @Summary     Recipe counters (cached)
// @Tags        Recipes
// @Produce     json
// @Success     200  {object} domain.Stats
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Router      /admin/stats [get]
func (h *Handlers) RecipeStats(c *gin.Context) {
	h.serve(c, domain.StatsKey(domain.ResourceRecipe))
}

// ListMealPlans godoc
// @ID          listMealPlans
// @Summary     List meal plans (cached)
// @Tags        MealPlans
// @Produce     json
//
// @Param       approved  query  bool    false "Approval filter"
// @Param       page      query  int     false "Page number"     minimum(0)
// @Param       limit     query  int     false "Items per page"  minimum(0)
// @Param       search    query  string  false "Free-text search"
//
// @Success     200  {object} domain.MealPlanPage
// @Failure     400  {object} handlers.ErrorResponse "Invalid filter"
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Router      /admin/meal-plans [get]
func (h *Handlers) ListMealPlans(c *gin.Context) {
	h.serveList(c, domain.EntityMealPlanList)
}

// MealPlanStats godoc
// @ID          mealPlanStats
// @Summary     Meal-plan counters (cached)
// @Tags        MealPlans
// @Produce     json
// @Success     200  {object} domain.Stats
// @Failure     502  {object} handlers.ErrorResponse "Upstream error"
// @Router      /admin/meal-plans/stats [get]
func (h *Handlers) MealPlanStats(c *gin.Context) {
	h.serve(c, domain.StatsKey(domain.ResourceMealPlan))
}

// CacheEntries godoc
// @ID          cacheEntries
// @Summary     Snapshot of the query cache
// @Tags        Cache
// @Produce     json
// @Success     200  {object} handlers.CacheEntriesResponse
// @Router      /admin/cache/entries [get]
func (h *Handlers) CacheEntries(c *gin.Context) {
	entries := h.cache.Entries()
	out := make([]CacheEntry, 0, len(entries))
	for _, e := range entries {
		row := CacheEntry{Key: e.Key.String(), Status: e.Status}
		if e.HasData() {
			t := e.FetchedAt.UTC()
			row.FetchedAt = &t
		}
		if e.Err != nil {
			row.Error = e.Err.Error()
		}
		out = append(out, row)
	}
	ok(c, http.StatusOK, CacheEntriesResponse{Entries: out})
}
