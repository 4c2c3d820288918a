package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// errTrailingData rejects bodies holding more than one JSON value.
var errTrailingData = errors.New("request body must contain a single JSON value")

// JSON writes v with the given status. Encoding errors are dropped because
// the status line has already been sent.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data writes v inside {"data": ...}.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, dataEnvelope{Data: v})
}

// JSONError writes {"error": {"code", "message", "details"}}.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// DecodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing values are rejected; an empty body is io.EOF.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
