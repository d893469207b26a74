// Package httpx holds the JSON helpers shared by every HTTP handler: decoding and
// validating request bodies and the single mapping from domain errors to responses.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is reported for unknown routes.
var ErrNotFound = errors.New("not found")

// ValidationError is a client input error; Msg is sent to the client verbatim.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation returns a *ValidationError carrying msg.
func Validation(msg string) error { return &ValidationError{Msg: msg} }

// ErrInvalidParam is returned by ParseID for a non-numeric path id.
var ErrInvalidParam = Validation("Invalid url param!")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JSON writes v as the JSON response body with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeAndValidate decodes the JSON body into dst (a pointer to struct) and runs the
// `validate` tags. The first failing field is reported as a *ValidationError whose message
// comes from the field's `msg_<tag>` or `msg` struct tag.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return Validation("Invalid request body!")
	}
	return Validate(dst)
}

// Validate runs the `validate` tags on v (a pointer to struct). See DecodeAndValidate.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return Validation(fieldMessage(v, fieldErrs[0]))
}

func fieldMessage(v any, fe validator.FieldError) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(fe.StructField()); ok {
		if msg := f.Tag.Get("msg_" + fe.Tag()); msg != "" {
			return msg
		}
		if msg := f.Tag.Get("msg"); msg != "" {
			return msg
		}
	}
	return fe.Field() + " is invalid!"
}

// ParseID parses the chi URL parameter name as a positive int64.
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidParam
	}
	return id, nil
}

// QueryInt returns the query parameter name as an int, or def when absent or not a number.
func QueryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return n
}

// NotFound responds 404 for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// MethodNotAllowed responds 405 for known routes with an unsupported method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

// ErrorItem is one entry of the error response body.
type ErrorItem struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// ErrorBody is the error response envelope.
type ErrorBody struct {
	Errors []ErrorItem `json:"errors"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Errors: []ErrorItem{{Type: errorType(status), Msg: msg}}})
}

func errorType(status int) string {
	text := strings.ReplaceAll(http.StatusText(status), " ", "")
	if text == "" {
		text = "Unknown"
	}
	if !strings.HasSuffix(text, "Error") {
		text += "Error"
	}
	return text
}

func logFor(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
