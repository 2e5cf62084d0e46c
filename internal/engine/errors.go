package engine

import "fmt"

type AppError struct {
	Code    string        `json:"code"`
	Status  int           `json:"-"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string, details ...string) *AppError {
	e := &AppError{Code: code, Status: status, Message: msg}
	for _, d := range details {
		if d != "" {
			e.Details = append(e.Details, ErrorDetail{Message: d})
		}
	}
	return e
}

func UnknownViewError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_VIEW",
		Status:  404,
		Message: fmt.Sprintf("Unknown view: %s", name),
	}
}

// In-page message lines. Mutation outcomes and configuration problems are
// rendered into the view, never surfaced as HTTP errors: a storage failure
// is logged in full by the executor but callers only ever see these.
const (
	MsgNoFields      = "No valid fields defined in configuration."
	MsgNoTable       = "No table specified in configuration."
	MsgAllRequired   = "All fields are required."
	MsgAddFailed     = "Error adding record."
	MsgUpdateFailed  = "Error updating record."
	MsgDeleteFailed  = "Error deleting record."
	MsgLoadFailed    = "Error loading records."
	MsgBadSubmission = "Could not verify the submission. Please try again."
	MsgAdded         = "Record added successfully!"
	MsgUpdated       = "Record updated successfully!"
)
