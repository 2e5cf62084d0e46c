// Package admin exposes the configuration helpers: table discovery,
// field-spec suggestions and the AJAX record delete endpoint.
package admin

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofiber/fiber/v2"

	"table-crud/internal/auth"
	"table-crud/internal/config"
	"table-crud/internal/engine"
	"table-crud/internal/schema"
	"table-crud/internal/store"
)

// Backend is the slice of storage the admin surface needs. *store.Store
// satisfies it.
type Backend interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]store.ColumnInfo, error)
	Exec(ctx context.Context, sqlStr string, args ...any) (int64, error)
	PrimaryKey(ctx context.Context, table string) string
	Placeholders() sq.PlaceholderFormat
}

type Handler struct {
	store  Backend
	tokens *auth.Issuer
	views  map[string]config.ViewConfig
}

func NewHandler(st Backend, tokens *auth.Issuer, views map[string]config.ViewConfig) *Handler {
	return &Handler{store: st, tokens: tokens, views: views}
}

func RegisterRoutes(app *fiber.App, h *Handler) {
	grp := app.Group("/admin")
	grp.Get("/tables", h.ListTables)
	grp.Get("/tables/:table/fields", h.SuggestFields)
	grp.Post("/records/delete", h.DeleteRecord)
}

// ListTables returns every user table visible to the connection.
func (h *Handler) ListTables(c *fiber.Ctx) error {
	tables, err := h.store.Tables(c.Context())
	if err != nil {
		return engine.NewAppError("TABLES_FAILED", fiber.StatusInternalServerError, "could not list tables", err.Error())
	}
	return c.JSON(fiber.Map{"data": tables})
}

// FieldSuggestion pairs a ready-to-paste field spec line with its parts
// so a UI can offer both.
type FieldSuggestion struct {
	Field      string `json:"field"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	PrimaryKey bool   `json:"primary_key"`
	Spec       string `json:"spec"`
}

// SuggestFields inspects one table's columns and proposes a field spec
// per column, inferring the display type from the storage type.
func (h *Handler) SuggestFields(c *fiber.Ctx) error {
	table := c.Params("table")
	if !schema.ValidIdent(table) {
		return engine.NewAppError("BAD_TABLE", fiber.StatusBadRequest, "invalid table name", table)
	}

	cols, err := h.store.Columns(c.Context(), table)
	if err != nil {
		return engine.NewAppError("FIELDS_FAILED", fiber.StatusInternalServerError, "could not describe table", err.Error())
	}

	out := make([]FieldSuggestion, 0, len(cols))
	for _, col := range cols {
		s := FieldSuggestion{
			Field:      col.Name,
			Label:      labelFor(col.Name),
			Type:       string(displayTypeFor(col.Type)),
			PrimaryKey: col.PrimaryKey,
		}
		s.Spec = fmt.Sprintf("fieldname=%s;displayname=%s;displaytype=%s", s.Field, s.Label, s.Type)
		if col.PrimaryKey {
			s.Spec += ";readonly=true"
		}
		out = append(out, s)
	}
	return c.JSON(fiber.Map{"data": out})
}

// displayTypeFor maps a storage column type to the closest display type.
func displayTypeFor(dbType string) schema.DisplayType {
	t := strings.ToLower(dbType)
	if idx := strings.IndexByte(t, '('); idx >= 0 {
		t = t[:idx]
	}
	switch {
	case strings.Contains(t, "int"),
		strings.Contains(t, "decimal"),
		strings.Contains(t, "numeric"),
		strings.Contains(t, "float"),
		strings.Contains(t, "double"),
		strings.Contains(t, "real"):
		return schema.TypeNumber
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return schema.TypeDatetime
	case strings.Contains(t, "date"):
		return schema.TypeDate
	case strings.Contains(t, "bool"):
		return schema.TypeCheckbox
	case t == "text", strings.Contains(t, "longtext"), strings.Contains(t, "clob"):
		return schema.TypeTextarea
	default:
		return schema.TypeText
	}
}

// labelFor turns snake_case column names into title-cased labels.
func labelFor(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

type deleteRequest struct {
	View     string `json:"view" form:"view"`
	RecordID string `json:"record_id" form:"record_id"`
	Token    string `json:"token" form:"token"`
}

// DeleteRecord removes a single record given a delete token scoped to
// that exact view and record.
func (h *Handler) DeleteRecord(c *fiber.Ctx) error {
	var body deleteRequest
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("BAD_REQUEST", fiber.StatusBadRequest, "invalid request body", err.Error())
	}

	vc, ok := h.views[body.View]
	if !ok {
		return engine.UnknownViewError(body.View)
	}
	if !h.tokens.Verify(body.Token, auth.ActionDelete, body.View, body.RecordID) {
		return engine.NewAppError("FORBIDDEN", fiber.StatusForbidden, "token does not match record", "")
	}
	if !schema.ValidIdent(vc.Table) {
		return engine.NewAppError("BAD_TABLE", fiber.StatusBadRequest, "invalid table name", vc.Table)
	}

	pk := h.store.PrimaryKey(c.Context(), vc.Table)
	sqlStr, args, err := sq.Delete(vc.Table).
		Where(sq.Eq{pk: body.RecordID}).
		PlaceholderFormat(h.store.Placeholders()).
		ToSql()
	if err != nil {
		return engine.NewAppError("DELETE_FAILED", fiber.StatusInternalServerError, engine.MsgDeleteFailed, err.Error())
	}
	affected, err := h.store.Exec(c.Context(), sqlStr, args...)
	if err != nil {
		return engine.NewAppError("DELETE_FAILED", fiber.StatusInternalServerError, engine.MsgDeleteFailed, err.Error())
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": affected}})
}
