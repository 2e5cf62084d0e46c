package engine

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"table-crud/internal/auth"
	"table-crud/internal/schema"
	"table-crud/internal/store"
)

// fakeStore is a scripted Storage for engine tests. It records every
// statement it receives so assertions can check what reached the database.
type fakeStore struct {
	rows       []map[string]any
	rowsErr    error
	total      int64
	countErr   error
	fetchRow   map[string]any
	fetchErr   error
	execErr    error
	vectorCols []string
	vectors    [][]any
	vecErr     error

	queries   []string
	queryArgs [][]any
	execs     []string
	execArgs  [][]any
}

func (f *fakeStore) QueryRows(_ context.Context, sqlStr string, args ...any) ([]map[string]any, error) {
	f.queries = append(f.queries, sqlStr)
	f.queryArgs = append(f.queryArgs, args)
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return f.rows, nil
}

func (f *fakeStore) QueryRow(_ context.Context, sqlStr string, args ...any) (map[string]any, error) {
	f.queries = append(f.queries, sqlStr)
	f.queryArgs = append(f.queryArgs, args)
	if strings.HasPrefix(sqlStr, "SELECT COUNT") {
		if f.countErr != nil {
			return nil, f.countErr
		}
		return map[string]any{"total": f.total}, nil
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchRow == nil {
		return nil, store.ErrNotFound
	}
	return f.fetchRow, nil
}

func (f *fakeStore) QueryVectors(_ context.Context, sqlStr string, args ...any) ([]string, [][]any, error) {
	if f.vecErr != nil {
		return nil, nil, f.vecErr
	}
	_ = sqlStr
	_ = args
	return f.vectorCols, f.vectors, nil
}

func (f *fakeStore) Exec(_ context.Context, sqlStr string, args ...any) (int64, error) {
	f.execs = append(f.execs, sqlStr)
	f.execArgs = append(f.execArgs, args)
	if f.execErr != nil {
		return 0, f.execErr
	}
	return 1, nil
}

var testIssuer = auth.NewIssuer("test-secret")

func newTestEngine(st *fakeStore) *Engine {
	return New(st, testIssuer, sq.Question)
}

func mustToken(t *testing.T, action, view, recordID string) string {
	t.Helper()
	tok, err := testIssuer.Issue(action, view, recordID)
	require.NoError(t, err)
	return tok
}

func TestHandleConfigErrors(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	noTable := testConfig()
	noTable.Table = ""
	res, err := eng.Handle(context.Background(), noTable, getRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, MsgNoTable, res.View.ConfigErr)

	badTable := testConfig()
	badTable.Table = "users; DROP TABLE users"
	res, err = eng.Handle(context.Background(), badTable, getRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, MsgNoTable, res.View.ConfigErr)

	noFields := testConfig()
	noFields.Columns = schema.ParseColumns(nil)
	res, err = eng.Handle(context.Background(), noFields, getRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, MsgNoFields, res.View.ConfigErr)

	// Nothing reached storage.
	assert.Empty(t, st.queries)
	assert.Empty(t, st.execs)
}

func TestHandlePlainListing(t *testing.T) {
	st := &fakeStore{
		total: 2,
		rows: []map[string]any{
			{"id": int64(2), "name": "Bob", "email": "bob@example.com"},
			{"id": int64(1), "name": "Ada", "email": "ada@example.com"},
		},
	}
	eng := newTestEngine(st)

	res, err := eng.Handle(context.Background(), testConfig(), getRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, res.View)

	vm := res.View
	assert.Equal(t, int64(2), vm.Total)
	require.NotNil(t, vm.Table)
	require.Len(t, vm.Table.Rows, 2)
	assert.Equal(t, "2", vm.Table.Rows[0].ID)
	assert.False(t, vm.Table.Empty)

	// Count first, then the page query with bound limit and offset.
	require.Len(t, st.queries, 2)
	assert.Contains(t, st.queries[0], "COUNT(*)")
	assert.Contains(t, st.queries[1], "LIMIT ? OFFSET ?")
	assert.Equal(t, []any{5, 0}, st.queryArgs[1])

	// Action links carry record-scoped tokens.
	edit := vm.Table.Rows[0].Edit
	require.NotNil(t, edit)
	assert.True(t, testIssuer.Verify(edit.Token, auth.ActionEdit, "contacts", "2"))
	assert.False(t, testIssuer.Verify(edit.Token, auth.ActionEdit, "contacts", "1"))
}

func TestHandlePageBeyondRange(t *testing.T) {
	st := &fakeStore{total: 12, rows: nil}
	eng := newTestEngine(st)

	res, err := eng.Handle(context.Background(), testConfig(), getRequest(url.Values{ParamPaged: {"4"}}))
	require.NoError(t, err)

	vm := res.View
	assert.True(t, vm.Table.Empty)
	assert.Equal(t, "No records found.", vm.Table.EmptyText)
	// Three configured columns plus the actions column.
	assert.Equal(t, 4, vm.Table.EmptyColspan)

	require.NotNil(t, vm.Pagination)
	assert.Equal(t, 3, vm.Pagination.TotalPages)
	assert.Equal(t, 4, vm.Pagination.Page)
	assert.True(t, vm.Pagination.HasPrev)
	assert.False(t, vm.Pagination.HasNext)

	// OFFSET for page 4.
	assert.Equal(t, []any{5, 15}, st.queryArgs[1])
}

func TestHandleDelete(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	req := getRequest(url.Values{
		ParamDelete:    {"5"},
		ParamLinkToken: {mustToken(t, auth.ActionDelete, "contacts", "5")},
		ParamOrderBy:   {"name"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	require.Len(t, st.execs, 1)
	assert.Equal(t, "DELETE FROM contacts WHERE id = ?", st.execs[0])
	assert.Equal(t, []any{int64(5)}, st.execArgs[0])

	// Redirect drops the one-time parameters but keeps the sort.
	require.NotEmpty(t, res.Redirect)
	assert.NotContains(t, res.Redirect, ParamDelete)
	assert.NotContains(t, res.Redirect, ParamLinkToken)
	assert.Contains(t, res.Redirect, "orderby=name")
}

func TestHandleDeleteForgedTokenIgnored(t *testing.T) {
	st := &fakeStore{total: 0}
	eng := newTestEngine(st)

	// Token scoped to record 6 must not delete record 5.
	req := getRequest(url.Values{
		ParamDelete:    {"5"},
		ParamLinkToken: {mustToken(t, auth.ActionDelete, "contacts", "6")},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	assert.Empty(t, st.execs)
	assert.Empty(t, res.Redirect)
	require.NotNil(t, res.View)
	assert.Empty(t, res.View.Messages)
}

func TestHandleDeleteStorageError(t *testing.T) {
	st := &fakeStore{execErr: errors.New("locked")}
	eng := newTestEngine(st)

	req := getRequest(url.Values{
		ParamDelete:    {"5"},
		ParamLinkToken: {mustToken(t, auth.ActionDelete, "contacts", "5")},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	assert.Empty(t, res.Redirect)
	require.NotEmpty(t, res.View.Messages)
	assert.Equal(t, MsgDeleteFailed, res.View.Messages[0].Text)
}

func submitForm(form url.Values) *Request {
	req := getRequest(nil)
	form.Set(ParamFormType, FormTypeData)
	req.Form = form
	return req
}

func TestHandleInsertSubmission(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	req := submitForm(url.Values{
		ParamFormToken: {mustToken(t, auth.ActionForm, "contacts", "")},
		"id":           {"10"},
		"name":         {"Ada"},
		"email":        {"ada@example.com"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	require.Len(t, st.execs, 1)
	assert.Equal(t, "INSERT INTO contacts (id,name,email) VALUES (?,?,?)", st.execs[0])
	assert.Equal(t, []any{int64(10), "Ada", "ada@example.com"}, st.execArgs[0])
	assert.Contains(t, res.Redirect, "added=1")
}

func TestHandleUpdateSubmission(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	req := submitForm(url.Values{
		ParamFormToken: {mustToken(t, auth.ActionForm, "contacts", "")},
		ParamUpdate:    {"1"},
		ParamRecordID:  {"10"},
		"id":           {"10"},
		"name":         {"Ada"},
		"email":        {"ada@example.com"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	require.Len(t, st.execs, 1)
	assert.Equal(t, "UPDATE contacts SET name = ?, email = ? WHERE id = ?", st.execs[0])
	assert.Equal(t, []any{"Ada", "ada@example.com", int64(10)}, st.execArgs[0])
	assert.Contains(t, res.Redirect, "updated=1")
}

func TestHandleSubmissionMissingRequired(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	req := submitForm(url.Values{
		ParamFormToken: {mustToken(t, auth.ActionForm, "contacts", "")},
		"name":         {"Ada"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	// Nothing was written.
	assert.Empty(t, st.execs)
	assert.Empty(t, res.Redirect)

	vm := res.View
	require.NotEmpty(t, vm.Messages)
	assert.Equal(t, MsgAllRequired, vm.Messages[0].Text)

	// The form re-renders what the user typed, with the gap flagged.
	require.NotNil(t, vm.Form)
	byField := map[string]FormField{}
	for _, f := range vm.Form.Fields {
		byField[f.Field] = f
	}
	assert.Equal(t, "Ada", byField["name"].Value)
	assert.Equal(t, RuleRequired, byField["email"].Error)
}

func TestHandleSubmissionBadToken(t *testing.T) {
	st := &fakeStore{}
	eng := newTestEngine(st)

	req := submitForm(url.Values{
		ParamFormToken: {"garbage"},
		"id":           {"10"},
		"name":         {"Ada"},
		"email":        {"ada@example.com"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	assert.Empty(t, st.execs)
	assert.Empty(t, res.Redirect)
	require.NotEmpty(t, res.View.Messages)
	assert.Equal(t, MsgBadSubmission, res.View.Messages[0].Text)
}

func TestHandleSubmissionStorageError(t *testing.T) {
	st := &fakeStore{execErr: errors.New("unique constraint")}
	eng := newTestEngine(st)

	req := submitForm(url.Values{
		ParamFormToken: {mustToken(t, auth.ActionForm, "contacts", "")},
		"id":           {"10"},
		"name":         {"Ada"},
		"email":        {"ada@example.com"},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	assert.Empty(t, res.Redirect)
	require.NotEmpty(t, res.View.Messages)
	assert.Equal(t, MsgAddFailed, res.View.Messages[0].Text)
}

func TestHandleEditMode(t *testing.T) {
	st := &fakeStore{
		fetchRow: map[string]any{"id": int64(5), "name": "Ada", "email": "ada@example.com"},
	}
	eng := newTestEngine(st)

	req := getRequest(url.Values{
		ParamEdit:      {"5"},
		ParamLinkToken: {mustToken(t, auth.ActionEdit, "contacts", "5")},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	form := res.View.Form
	require.NotNil(t, form)
	assert.True(t, form.Editing)
	assert.Equal(t, "5", form.RecordID)
	assert.Equal(t, "Ada", form.Fields[1].Value)
}

func TestHandleEditForgedTokenFallsBack(t *testing.T) {
	st := &fakeStore{
		fetchRow: map[string]any{"id": int64(5), "name": "Ada", "email": "a@b.c"},
	}
	eng := newTestEngine(st)

	req := getRequest(url.Values{
		ParamEdit:      {"5"},
		ParamLinkToken: {mustToken(t, auth.ActionEdit, "contacts", "6")},
	})
	res, err := eng.Handle(context.Background(), testConfig(), req)
	require.NoError(t, err)

	require.NotNil(t, res.View.Form)
	assert.False(t, res.View.Form.Editing)
}

func TestHandleListingStorageError(t *testing.T) {
	for name, st := range map[string]*fakeStore{
		"count":  {countErr: errors.New("no such table: contacts")},
		"select": {rowsErr: errors.New("disk I/O error")},
	} {
		res, err := newTestEngine(st).Handle(context.Background(), testConfig(), getRequest(nil))
		require.NoError(t, err, name)

		// The listing degrades in-page instead of surfacing a 500.
		vm := res.View
		require.NotNil(t, vm, name)
		require.NotEmpty(t, vm.Messages, name)
		assert.Equal(t, MsgLoadFailed, vm.Messages[0].Text, name)
		assert.Equal(t, int64(0), vm.Total, name)
		assert.True(t, vm.Table.Empty, name)
	}
}

func TestHandleSuccessMarkers(t *testing.T) {
	eng := newTestEngine(&fakeStore{})

	res, err := eng.Handle(context.Background(), testConfig(), getRequest(url.Values{ParamAdded: {"1"}}))
	require.NoError(t, err)
	require.NotEmpty(t, res.View.Messages)
	assert.Equal(t, MsgAdded, res.View.Messages[0].Text)
	assert.Equal(t, "success", res.View.Messages[0].Kind)

	res, err = eng.Handle(context.Background(), testConfig(), getRequest(url.Values{ParamUpdated: {"1"}}))
	require.NoError(t, err)
	assert.Equal(t, MsgUpdated, res.View.Messages[0].Text)
}

func TestCountTotal(t *testing.T) {
	assert.Equal(t, int64(7), countTotal(map[string]any{"total": int64(7)}))
	assert.Equal(t, int64(7), countTotal(map[string]any{"count": 7}))
	assert.Equal(t, int64(7), countTotal(map[string]any{"COUNT(*)": float64(7)}))
	assert.Equal(t, int64(0), countTotal(map[string]any{}))
}
