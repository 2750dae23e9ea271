// Package upstream is the HTTP client for the nutrition admin API.
//
// It covers exactly the endpoints the cache-sync layer consumes: paginated
// recipe / meal-plan lists, their aggregate stats, single-entity approve /
// unapprove / delete, and the bulk endpoints. Reads return typed DTOs;
// mutations return the raw response body so callers can interpret counts.
//
// The client never retries. Non-2xx responses are returned as *StatusError
// carrying the server's own message when the body has one.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tbourn/recipe-cache-sync/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrUnsupportedMutation is returned by Mutate for an unknown kind/resource.
var ErrUnsupportedMutation = errors.New("upstream: unsupported mutation")

// StatusError is a non-2xx response from the upstream API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream: status %d", e.Code)
	}
	return fmt.Sprintf("upstream: status %d: %s", e.Code, e.Message)
}

// AuthFailure reports whether the response rejected the caller's credentials.
func (e *StatusError) AuthFailure() bool {
	return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is the service token used for shared reads and as the fallback
	// credential for mutations issued without a caller token.
	Token   string
	Timeout time.Duration

	// HTTPClient overrides the instrumented default (tests).
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to the upstream admin API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Client. The default transport is wrapped with otelhttp so
// every upstream call is a child span of the request that caused it.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	lg := log.Logger
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    hc,
		log:     lg.With().Str("component", "upstream").Logger(),
	}
}

// collectionPath returns the admin collection path of res.
func collectionPath(res domain.Resource) string {
	if res == domain.ResourceMealPlan {
		return "/api/admin/meal-plans"
	}
	return "/api/admin/recipes"
}

// statsPath returns the stats path of res.
func statsPath(res domain.Resource) string {
	if res == domain.ResourceMealPlan {
		return "/api/admin/meal-plans/stats"
	}
	return "/api/admin/stats"
}

// bulkIDsField is the JSON field the bulk approve endpoints expect.
func bulkIDsField(res domain.Resource) string {
	if res == domain.ResourceMealPlan {
		return "mealPlanIds"
	}
	return "recipeIds"
}

// ListRecipes fetches one page of recipes.
func (c *Client) ListRecipes(ctx context.Context, f domain.Filter) (*domain.RecipePage, error) {
	var out domain.RecipePage
	if err := c.getJSON(ctx, collectionPath(domain.ResourceRecipe), f, &out); err != nil {
		return nil, err
	}
	if out.Recipes == nil {
		out.Recipes = []domain.Recipe{}
	}
	return &out, nil
}

// ListMealPlans fetches one page of meal plans.
func (c *Client) ListMealPlans(ctx context.Context, f domain.Filter) (*domain.MealPlanPage, error) {
	var out domain.MealPlanPage
	if err := c.getJSON(ctx, collectionPath(domain.ResourceMealPlan), f, &out); err != nil {
		return nil, err
	}
	if out.MealPlans == nil {
		out.MealPlans = []domain.MealPlan{}
	}
	return &out, nil
}

// Stats fetches the aggregate counters of res.
func (c *Client) Stats(ctx context.Context, res domain.Resource) (*domain.Stats, error) {
	var out domain.Stats
	if err := c.getJSON(ctx, statsPath(res), domain.Filter{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fetch loads the data behind a query key. It has the querystore.Fetcher
// signature so one client serves every entity type.
func (c *Client) Fetch(ctx context.Context, key domain.QueryKey) (any, error) {
	switch key.Entity {
	case domain.EntityRecipeList:
		return c.ListRecipes(ctx, key.Filter())
	case domain.EntityMealPlanList:
		return c.ListMealPlans(ctx, key.Filter())
	case domain.EntityRecipeStats, domain.EntityMealPlanStats:
		return c.Stats(ctx, key.Entity.Resource())
	}
	return nil, fmt.Errorf("upstream: unknown entity type %q", key.Entity)
}

// Mutation is one write against the upstream API.
type Mutation struct {
	Kind     domain.MutationKind
	Resource domain.Resource
	IDs      []string
	// AuthToken is the caller's bearer token. Empty falls back to the
	// service token.
	AuthToken string
}

// Mutate dispatches m as a single request and returns the raw 2xx body.
func (c *Client) Mutate(ctx context.Context, m Mutation) ([]byte, error) {
	method, path, body, err := c.route(m)
	if err != nil {
		return nil, err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("upstream: create request: %w", err)
	}
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req, m.AuthToken)

	c.log.Debug().Str("method", method).Str("path", path).Int("ids", len(m.IDs)).Msg("upstream mutation")
	return c.do(req)
}

func (c *Client) route(m Mutation) (method, path string, body any, err error) {
	if !m.Resource.Valid() {
		return "", "", nil, ErrUnsupportedMutation
	}
	base := collectionPath(m.Resource)

	if !m.Kind.IsBulk() {
		if len(m.IDs) != 1 || strings.TrimSpace(m.IDs[0]) == "" {
			return "", "", nil, fmt.Errorf("%w: %s needs exactly one id", ErrUnsupportedMutation, m.Kind)
		}
		id := url.PathEscape(strings.TrimSpace(m.IDs[0]))
		switch m.Kind {
		case domain.KindApprove:
			return http.MethodPatch, base + "/" + id + "/approve", nil, nil
		case domain.KindUnapprove:
			return http.MethodPatch, base + "/" + id + "/unapprove", nil, nil
		case domain.KindDelete:
			return http.MethodDelete, base + "/" + id, nil, nil
		}
		return "", "", nil, ErrUnsupportedMutation
	}

	switch m.Kind {
	case domain.KindBulkDelete:
		return http.MethodDelete, base, map[string][]string{"ids": m.IDs}, nil
	case domain.KindBulkApprove:
		return http.MethodPost, base + "/bulk-approve", map[string][]string{bulkIDsField(m.Resource): m.IDs}, nil
	case domain.KindBulkUnapprove:
		return http.MethodPost, base + "/bulk-unapprove", map[string][]string{bulkIDsField(m.Resource): m.IDs}, nil
	}
	return "", "", nil, ErrUnsupportedMutation
}

func (c *Client) getJSON(ctx context.Context, path string, f domain.Filter, out any) error {
	u := c.baseURL + path
	if q := f.Params().Encode(); q != "" {
		u += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("upstream: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req, "")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request, callerToken string) {
	tok := strings.TrimSpace(callerToken)
	if tok == "" {
		tok = c.token
	}
	if tok == "" {
		return
	}
	if !strings.HasPrefix(strings.ToLower(tok), "bearer ") {
		tok = "Bearer " + tok
	}
	req.Header.Set("Authorization", tok)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("upstream: read body: %w", err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("upstream response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: serverMessage(body)}
	}
	return body, nil
}

// serverMessage extracts a human-readable message from an error body. It
// looks at "message" first, then "error" (string or {"message": ...}).
func serverMessage(body []byte) string {
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if m := strings.TrimSpace(env.Message); m != "" {
		return m
	}
	if len(env.Error) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(env.Error, &s) == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(env.Error, &nested) == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
