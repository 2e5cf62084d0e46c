package engine

import (
	"context"
	"log"

	sq "github.com/Masterminds/squirrel"

	"table-crud/internal/auth"
	"table-crud/internal/schema"
	"table-crud/internal/store"
)

// Engine runs one CRUD request to completion against an injected storage
// port. It holds no per-request state; everything request-scoped lives in
// Request/Result values.
type Engine struct {
	store  store.Storage
	tokens *auth.Issuer
	ph     sq.PlaceholderFormat
}

func New(st store.Storage, tokens *auth.Issuer, ph sq.PlaceholderFormat) *Engine {
	return &Engine{store: st, tokens: tokens, ph: ph}
}

// Handle is the request state machine: a delete request or a form
// submission reaches a terminal redirect on success, everything else falls
// through to the listing. Forged or missing action tokens never produce an
// error; the request silently degrades to a plain listing so probing
// leaks nothing about record existence.
func (e *Engine) Handle(ctx context.Context, cfg *schema.TableConfig, req *Request) (*Result, error) {
	if cfg.Table == "" || !schema.ValidIdent(cfg.Table) {
		return &Result{View: &ViewModel{View: cfg.View, ConfigErr: MsgNoTable}}, nil
	}
	if cfg.Columns.Len() == 0 {
		return &Result{View: &ViewModel{View: cfg.View, ConfigErr: MsgNoFields}}, nil
	}

	var messages []Message

	// Delete request: record-scoped token or the attempt is ignored.
	if id := req.Query.Get(ParamDelete); id != "" {
		if e.tokens.Verify(req.Query.Get(ParamLinkToken), auth.ActionDelete, cfg.View, id) {
			if msg := e.deleteRecord(ctx, cfg, id); msg != nil {
				messages = append(messages, *msg)
			} else {
				return &Result{Redirect: redirectURL(req, "")}, nil
			}
		}
	}

	// Form submission.
	var sub *Submission
	if req.Form.Get(ParamFormType) == FormTypeData {
		res, submission, msg := e.handleSubmission(ctx, cfg, req)
		if res != nil {
			return res, nil
		}
		sub = submission
		if msg != nil {
			messages = append(messages, *msg)
		}
	}

	// Edit-mode entry: record-scoped token or silent fallback to listing.
	edit := e.resolveEdit(ctx, cfg, req)

	// Success markers from a completed mutation's redirect.
	if req.Query.Get(ParamAdded) != "" {
		messages = append(messages, Message{Kind: "success", Text: MsgAdded})
	}
	if req.Query.Get(ParamUpdated) != "" {
		messages = append(messages, Message{Kind: "success", Text: MsgUpdated})
	}

	return e.list(ctx, cfg, req, sub, edit, messages)
}

// deleteRecord runs the single-row delete. A nil return means the row was
// deleted and the caller should redirect; a message means render in-page.
func (e *Engine) deleteRecord(ctx context.Context, cfg *schema.TableConfig, id string) *Message {
	sqlStr, args, err := BuildDeleteSQL(cfg, BindValue(id), e.ph)
	if err != nil {
		log.Printf("build delete for %s: %v", cfg.Table, err)
		return &Message{Kind: "error", Text: MsgDeleteFailed}
	}
	if _, err := e.store.Exec(ctx, sqlStr, args...); err != nil {
		// Full backend detail stays in the operator log.
		log.Printf("delete %s %s=%s: %v", cfg.Table, cfg.PrimaryKey, id, err)
		return &Message{Kind: "error", Text: MsgDeleteFailed}
	}
	return nil
}

// handleSubmission validates and writes a posted form. Exactly one of the
// returns is meaningful: a terminal Result (redirect), a Submission to
// re-render with errors, or a message for a rejected/failed write.
func (e *Engine) handleSubmission(ctx context.Context, cfg *schema.TableConfig, req *Request) (*Result, *Submission, *Message) {
	if !e.tokens.Verify(req.Form.Get(ParamFormToken), auth.ActionForm, cfg.View, "") {
		return nil, nil, &Message{Kind: "error", Text: MsgBadSubmission}
	}

	sub := CoerceFields(cfg, req.Form)
	if !sub.OK() {
		return nil, sub, &Message{Kind: "error", Text: MsgAllRequired}
	}

	recordID := req.Form.Get(ParamRecordID)
	updating := req.Form.Get(ParamUpdate) != "" && recordID != ""

	var sqlStr string
	var args []any
	var err error
	if updating {
		sqlStr, args, err = BuildUpdateSQL(cfg, sub.Bind, BindValue(recordID), e.ph)
	} else {
		sqlStr, args, err = BuildInsertSQL(cfg, sub.Bind, e.ph)
	}
	if err == nil {
		_, err = e.store.Exec(ctx, sqlStr, args...)
	}
	if err != nil {
		log.Printf("write %s (updating=%v): %v", cfg.Table, updating, err)
		msg := MsgAddFailed
		if updating {
			msg = MsgUpdateFailed
		}
		return nil, sub, &Message{Kind: "error", Text: msg}
	}

	marker := ParamAdded
	if updating {
		marker = ParamUpdated
	}
	return &Result{Redirect: redirectURL(req, marker)}, nil, nil
}

// resolveEdit loads the record for a token-gated edit link. Any failure,
// token or storage side, degrades to a non-edit listing.
func (e *Engine) resolveEdit(ctx context.Context, cfg *schema.TableConfig, req *Request) editContext {
	id := req.Query.Get(ParamEdit)
	if id == "" || !e.tokens.Verify(req.Query.Get(ParamLinkToken), auth.ActionEdit, cfg.View, id) {
		return editContext{}
	}

	sqlStr, args, err := BuildFetchSQL(cfg, BindValue(id), e.ph)
	if err != nil {
		return editContext{}
	}
	record, err := e.store.QueryRow(ctx, sqlStr, args...)
	if err != nil {
		if err != store.ErrNotFound {
			log.Printf("fetch %s %s=%s: %v", cfg.Table, cfg.PrimaryKey, id, err)
		}
		return editContext{}
	}
	return editContext{Editing: true, RecordID: id, Record: record}
}

// list runs the count and page queries and assembles the view model. A
// storage failure degrades to an empty listing with a generic in-page
// message, the same shape the mutation paths use; the full error goes to
// the operator log.
func (e *Engine) list(ctx context.Context, cfg *schema.TableConfig, req *Request, sub *Submission, edit editContext, messages []Message) (*Result, error) {
	spec := ParseQuerySpec(cfg, req)

	countSQL, countArgs, err := BuildCountSQL(cfg, spec, e.ph)
	if err != nil {
		return nil, err
	}
	listSQL, listArgs, err := BuildListSQL(cfg, spec, e.ph)
	if err != nil {
		return nil, err
	}

	var total int64
	var rows []map[string]any
	countRow, err := e.store.QueryRow(ctx, countSQL, countArgs...)
	if err == nil {
		total = countTotal(countRow)
		rows, err = e.store.QueryRows(ctx, listSQL, listArgs...)
	}
	if err != nil {
		log.Printf("list %s: %v", cfg.Table, err)
		messages = append(messages, Message{Kind: "error", Text: MsgLoadFailed})
		total, rows = 0, nil
	}

	vm := BuildViewModel(cfg, req, spec, rows, total, sub, edit, messages, e.tokens)
	return &Result{View: vm}, nil
}

// countTotal digs the count out of a COUNT(*) row regardless of the
// driver's column naming and numeric type.
func countTotal(row map[string]any) int64 {
	for _, v := range row {
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			return int64(n)
		}
	}
	return 0
}
