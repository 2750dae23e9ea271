// Mutation HTTP handlers.
//
// This file exposes the writes:
//   - PATCH  /admin/{recipes|meal-plans}/{id}/approve
//   - PATCH  /admin/{recipes|meal-plans}/{id}/unapprove
//   - DELETE /admin/{recipes|meal-plans}/{id}
//   - POST   /admin/{recipes|meal-plans}/bulk-approve
//   - POST   /admin/{recipes|meal-plans}/bulk-unapprove
//   - DELETE /admin/{recipes|meal-plans}              (bulk delete)
//
// Each request is forwarded upstream exactly once with the caller's bearer
// token. On success the affected cache entries are invalidated before the
// response is written.
//
// Idempotency:
// When the client supplies an Idempotency-Key and a previous request with the
// same key, user and path changed server state, the stored answer is returned
// with `Idempotency-Replayed: true` and nothing is sent upstream.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
	"github.com/tbourn/recipe-cache-sync/internal/http/middleware"
	"github.com/tbourn/recipe-cache-sync/internal/services"
)

// BulkSelectionRequest is the selection of a bulk operation. The upstream
// field names are accepted as aliases of ids.
type BulkSelectionRequest struct {
	IDs         []string `json:"ids"         example:"r1,r2,r3"`
	RecipeIDs   []string `json:"recipeIds,omitempty"`
	MealPlanIDs []string `json:"mealPlanIds,omitempty"`
}

func (r BulkSelectionRequest) all() []string {
	out := make([]string, 0, len(r.IDs)+len(r.RecipeIDs)+len(r.MealPlanIDs))
	out = append(out, r.IDs...)
	out = append(out, r.RecipeIDs...)
	return append(out, r.MealPlanIDs...)
}

// MutationResponse reports the outcome of a write.
type MutationResponse struct {
	MutationID string              `json:"mutation_id,omitempty" example:"6f1c7a52-3a36-4d89-9d2a-6b7c6c0d8e11"`
	Kind       domain.MutationKind `json:"kind"                  example:"bulkApprove"`
	Outcome    domain.Outcome      `json:"outcome"               example:"partialSuccess"`
	Succeeded  int                 `json:"succeeded"             example:"7"`
	Failed     int                 `json:"failed"                example:"3"`
	Total      int                 `json:"total,omitempty"       example:"10"`
	// SucceededIDs is present when the server named the changed entities.
	SucceededIDs []string             `json:"succeeded_ids,omitempty"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Replayed     bool                 `json:"replayed,omitempty"`
}

//
// Single-entity mutations
//

// ApproveRecipe godoc
// @ID          approveRecipe
// @Summary     Approve a recipe
// @Tags        Recipes
// @Produce     json
//
// @Param       Authorization    header  string  false "Bearer token forwarded upstream"
// @Param       X-View-ID        header  string  false "View the action was taken in"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Recipe ID"
//
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/recipes/{id}/approve [patch]
func (h *Handlers) ApproveRecipe(c *gin.Context) {
	h.mutate(c, domain.ResourceRecipe, domain.KindApprove)
}

// UnapproveRecipe godoc
// @ID          unapproveRecipe
// @Summary     Unapprove a recipe
// @Tags        Recipes
// @Produce     json
// @Param       id  path  string  true  "Recipe ID"
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/recipes/{id}/unapprove [patch]
func (h *Handlers) UnapproveRecipe(c *gin.Context) {
	h.mutate(c, domain.ResourceRecipe, domain.KindUnapprove)
}

// DeleteRecipe godoc
// @ID          deleteRecipe
// @Summary     Delete a recipe
// @Tags        Recipes
// @Produce     json
// @Param       id  path  string  true  "Recipe ID"
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/recipes/{id} [delete]
func (h *Handlers) DeleteRecipe(c *gin.Context) {
	h.mutate(c, domain.ResourceRecipe, domain.KindDelete)
}

// ApproveMealPlan godoc
// @ID          approveMealPlan
// @Summary     Approve a meal plan
// @Tags        MealPlans
// @Produce     json
// @Param       id  path  string  true  "Meal plan ID"
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/meal-plans/{id}/approve [patch]
func (h *Handlers) ApproveMealPlan(c *gin.Context) {
	h.mutate(c, domain.ResourceMealPlan, domain.KindApprove)
}

// UnapproveMealPlan godoc
// @ID          unapproveMealPlan
// @Summary     Unapprove a meal plan
// @Tags        MealPlans
// @Produce     json
// @Param       id  path  string  true  "Meal plan ID"
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/meal-plans/{id}/unapprove [patch]
func (h *Handlers) UnapproveMealPlan(c *gin.Context) {
	h.mutate(c, domain.ResourceMealPlan, domain.KindUnapprove)
}

// DeleteMealPlan godoc
// @ID          deleteMealPlan
// @Summary     Delete a meal plan
// @Tags        MealPlans
// @Produce     json
// @Param       id  path  string  true  "Meal plan ID"
// @Success     200  {object} handlers.MutationResponse
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     502  {object} handlers.ErrorResponse "Mutation failed"
// @Router      /admin/meal-plans/{id} [delete]
func (h *Handlers) DeleteMealPlan(c *gin.Context) {
	h.mutate(c, domain.ResourceMealPlan, domain.KindDelete)
}

//
// Bulk mutations
//

// BulkApproveRecipes godoc
// @ID          bulkApproveRecipes
// @Summary     Approve a selection of recipes
// @Description One upstream request for the whole selection. 207 when only some recipes were approved.
// @Tags        Recipes
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  false "Bearer token forwarded upstream"
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.BulkSelectionRequest  true  "Selection"
//
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Session expired"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/recipes/bulk-approve [post]
func (h *Handlers) BulkApproveRecipes(c *gin.Context) {
	h.bulk(c, domain.ResourceRecipe, domain.BulkApprove)
}

// BulkUnapproveRecipes godoc
// @ID          bulkUnapproveRecipes
// @Summary     Unapprove a selection of recipes
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkSelectionRequest  true  "Selection"
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/recipes/bulk-unapprove [post]
func (h *Handlers) BulkUnapproveRecipes(c *gin.Context) {
	h.bulk(c, domain.ResourceRecipe, domain.BulkUnapprove)
}

// BulkDeleteRecipes godoc
// @ID          bulkDeleteRecipes
// @Summary     Delete a selection of recipes
// @Tags        Recipes
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkSelectionRequest  true  "Selection"
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/recipes [delete]
func (h *Handlers) BulkDeleteRecipes(c *gin.Context) {
	h.bulk(c, domain.ResourceRecipe, domain.BulkDelete)
}

// BulkApproveMealPlans godoc
// @ID          bulkApproveMealPlans
// @Summary     Approve a selection of meal plans
// @Tags        MealPlans
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkSelectionRequest  true  "Selection"
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/meal-plans/bulk-approve [post]
func (h *Handlers) BulkApproveMealPlans(c *gin.Context) {
	h.bulk(c, domain.ResourceMealPlan, domain.BulkApprove)
}

// BulkUnapproveMealPlans godoc
// @ID          bulkUnapproveMealPlans
// @Summary     Unapprove a selection of meal plans
// @Tags        MealPlans
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkSelectionRequest  true  "Selection"
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/meal-plans/bulk-unapprove [post]
func (h *Handlers) BulkUnapproveMealPlans(c *gin.Context) {
	h.bulk(c, domain.ResourceMealPlan, domain.BulkUnapprove)
}

// BulkDeleteMealPlans godoc
// @ID          bulkDeleteMealPlans
// @Summary     Delete a selection of meal plans
// @Tags        MealPlans
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkSelectionRequest  true  "Selection"
// @Success     200  {object} handlers.MutationResponse
// @Success     207  {object} handlers.MutationResponse "Partial success"
// @Failure     422  {object} handlers.ErrorResponse "Empty selection"
// @Failure     502  {object} handlers.ErrorResponse "Every item failed"
// @Router      /admin/meal-plans [delete]
func (h *Handlers) BulkDeleteMealPlans(c *gin.Context) {
	h.bulk(c, domain.ResourceMealPlan, domain.BulkDelete)
}

//
// Shared paths
//

func (h *Handlers) mutate(c *gin.Context, res domain.Resource, kind domain.MutationKind) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id required")
		return
	}
	if h.replay(c) {
		return
	}

	r, err := h.cache.Execute(c.Request.Context(), services.MutationRequest{
		Kind:      kind,
		Resource:  res,
		IDs:       []string{id},
		UserID:    userID(c),
		AuthToken: authToken(c),
		ActiveKey: h.activeKey(c),
	})
	if err != nil {
		failMutation(c, err)
		return
	}

	resp := MutationResponse{
		MutationID:   r.Record.ID,
		Kind:         r.Record.Kind,
		Outcome:      r.Record.Outcome,
		Succeeded:    r.Record.Succeeded,
		Failed:       r.Record.Failed,
		Total:        1,
		Notification: r.Notification,
	}
	h.remember(c, r.Notification, okMutation(c, resp))
}

func (h *Handlers) bulk(c *gin.Context, res domain.Resource, op domain.BulkOp) {
	var req BulkSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if h.replay(c) {
		return
	}

	r, err := h.cache.RunBulk(c.Request.Context(), services.BulkRequest{
		Op:        op,
		Resource:  res,
		IDs:       req.all(),
		UserID:    userID(c),
		AuthToken: authToken(c),
		ActiveKey: h.activeKey(c),
	})
	if err != nil {
		failMutation(c, err)
		return
	}

	resp := MutationResponse{
		Kind:         r.Kind,
		Outcome:      r.Outcome,
		Succeeded:    r.Succeeded,
		Failed:       r.Failed,
		Total:        r.Total,
		SucceededIDs: r.SucceededIDs,
		Notification: r.Notification,
	}
	if r.Resolution != nil {
		resp.MutationID = r.Resolution.Record.ID
	}
	h.remember(c, r.Notification, okMutation(c, resp))
}

// replay answers the request from a remembered answer. It reports whether
// a response was written.
func (h *Handlers) replay(c *gin.Context) bool {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.notes == nil {
		return false
	}
	n, _, err := h.notes.Replay(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key)
	if err != nil || n == nil {
		return false
	}
	okMutation(c, replayedResponse(n))
	return true
}

// remember stores the answer of a state-changing request under its
// Idempotency-Key. Best effort.
func (h *Handlers) remember(c *gin.Context, n *domain.Notification, status int) {
	key, has := middleware.GetIdempotencyKey(c)
	if !has || h.notes == nil || n == nil {
		return
	}
	if err := h.notes.Remember(c.Request.Context(), userID(c), middleware.IdempotencyScope(c), key, n.ID, status); err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency store failed")
	}
}

func replayedResponse(n *domain.Notification) MutationResponse {
	out := MutationResponse{
		MutationID:   n.MutationID,
		Kind:         n.Kind,
		Outcome:      domain.OutcomeSuccess,
		Notification: n,
		Replayed:     true,
	}
	switch n.Level {
	case domain.LevelWarning:
		out.Outcome = domain.OutcomePartialSuccess
	case domain.LevelError:
		out.Outcome = domain.OutcomeFailure
	}
	return out
}
