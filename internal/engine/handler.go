package engine

import (
	"context"
	"net/url"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofiber/fiber/v2"

	"table-crud/internal/auth"
	"table-crud/internal/config"
	"table-crud/internal/schema"
	"table-crud/internal/store"
)

// Backend is what the HTTP layer needs from storage. *store.Store
// satisfies it; tests substitute a fake.
type Backend interface {
	store.Storage
	PrimaryKey(ctx context.Context, table string) string
	Placeholders() sq.PlaceholderFormat
}

// Handler adapts HTTP requests to engine invocations.
type Handler struct {
	store  Backend
	engine *Engine
	tokens *auth.Issuer
	views  map[string]config.ViewConfig
}

func NewHandler(st Backend, tokens *auth.Issuer, views map[string]config.ViewConfig) *Handler {
	return &Handler{
		store:  st,
		engine: New(st, tokens, st.Placeholders()),
		tokens: tokens,
		views:  views,
	}
}

// RenderView handles GET and POST /views/:view: the full listing, edit,
// delete and submit surface of one configured view.
func (h *Handler) RenderView(c *fiber.Ctx) error {
	name := c.Params("view")
	vc, ok := h.views[name]
	if !ok {
		return UnknownViewError(name)
	}

	cfg := h.buildTableConfig(c.Context(), name, vc)
	req := requestFromCtx(c)

	result, err := h.engine.Handle(c.Context(), cfg, req)
	if err != nil {
		return err
	}
	if result.Redirect != "" {
		return c.Redirect(result.Redirect, fiber.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"data": result.View})
}

// lookupRequest is the AJAX contract for query-type fields.
type lookupRequest struct {
	View   string `json:"view" form:"view"`
	Field  string `json:"field" form:"field"`
	Search string `json:"search" form:"search"`
	Token  string `json:"token" form:"token"`
}

// Lookup handles POST /lookup. The executed SELECT comes from the view's
// own configuration, never from the request body, and the caller must
// present a form-scoped token for that view. Every failure mode answers
// with an empty result list so the widget stays resilient.
func (h *Handler) Lookup(c *fiber.Ctx) error {
	var body lookupRequest
	if err := c.BodyParser(&body); err != nil {
		return c.JSON(fiber.Map{"results": []LookupOption{}})
	}

	vc, ok := h.views[body.View]
	if !ok || !h.tokens.Verify(body.Token, auth.ActionForm, body.View, "") {
		return c.JSON(fiber.Map{"results": []LookupOption{}})
	}

	cols := schema.ParseColumns(vc.Fields)
	col := cols.Get(body.Field)
	if col == nil || col.LookupQuery == "" {
		return c.JSON(fiber.Map{"results": []LookupOption{}})
	}

	results := RunLookup(c.Context(), h.store, col.LookupQuery, body.Search)
	return c.JSON(fiber.Map{"results": results})
}

// buildTableConfig resolves one view's declarative config into the
// immutable per-request TableConfig, discovering the primary key from
// table metadata.
func (h *Handler) buildTableConfig(ctx context.Context, name string, vc config.ViewConfig) *schema.TableConfig {
	cfg := &schema.TableConfig{
		View:     name,
		Table:    vc.Table,
		Columns:  schema.ParseColumns(vc.Fields),
		PageSize: vc.Pagination,
		Show: schema.Visibility{
			Form:         config.ShowFlag(vc.ShowForm),
			Table:        config.ShowFlag(vc.ShowTable),
			Search:       config.ShowFlag(vc.ShowSearch),
			Pagination:   config.ShowFlag(vc.ShowPagination),
			RecordsCount: config.ShowFlag(vc.ShowCount),
			EditLink:     config.ShowFlag(vc.ShowEdit),
			DeleteLink:   config.ShowFlag(vc.ShowDelete),
		},
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = schema.DefaultPageSize
	}
	cfg.PrimaryKey = "id"
	if schema.ValidIdent(cfg.Table) {
		cfg.PrimaryKey = h.store.PrimaryKey(ctx, cfg.Table)
	}
	return cfg
}

// requestFromCtx snapshots the ambient fiber state into the explicit
// Request value the engine consumes.
func requestFromCtx(c *fiber.Ctx) *Request {
	query := url.Values{}
	for key, vals := range c.Queries() {
		query.Set(key, vals)
	}

	form := url.Values{}
	if c.Method() == fiber.MethodPost {
		c.Request().PostArgs().VisitAll(func(key, val []byte) {
			form.Add(string(key), string(val))
		})
	}

	return &Request{Path: c.Path(), Query: query, Form: form}
}
