package engine

import "net/url"

// Request parameter names. Link tokens ride in "_token", form tokens in
// "crud_token"; "form_type" discriminates a data submission from a
// pagination postback.
const (
	ParamSearch    = "search"
	ParamOrderBy   = "orderby"
	ParamOrder     = "order"
	ParamPaged     = "paged"
	ParamEdit      = "edit_record"
	ParamDelete    = "delete_record"
	ParamLinkToken = "_token"
	ParamFormType  = "form_type"
	ParamFormToken = "crud_token"
	ParamRecordID  = "record_id"
	ParamUpdate    = "update_record"
	ParamAdded     = "added"
	ParamUpdated   = "updated"

	FormTypeData       = "data_form"
	FormTypePagination = "pagination"
)

// Request carries all inbound state for one engine invocation. There is no
// ambient request access anywhere below this type.
type Request struct {
	Path  string     // request path, base for redirect URLs
	Query url.Values // GET parameters
	Form  url.Values // POST parameters, empty on plain renders
}

// Result is the terminal state of one invocation: either a redirect intent
// or a view model to render.
type Result struct {
	Redirect string     `json:"redirect,omitempty"`
	View     *ViewModel `json:"view,omitempty"`
}

// redirectURL rebuilds the current URL with one marker parameter added and
// the one-time parameters stripped, so a back-button replay cannot repeat
// the mutation.
func redirectURL(req *Request, marker string) string {
	q := url.Values{}
	for key, vals := range req.Query {
		switch key {
		case ParamEdit, ParamDelete, ParamLinkToken, ParamAdded, ParamUpdated:
			continue
		}
		q[key] = vals
	}
	if marker != "" {
		q.Set(marker, "1")
	}
	if len(q) == 0 {
		return req.Path
	}
	return req.Path + "?" + q.Encode()
}
