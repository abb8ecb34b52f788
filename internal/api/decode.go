package api

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"

	"github.com/obsidianstack/statusbot/internal/dispatch"
	"github.com/obsidianstack/statusbot/internal/templates"
)

const maxBodyBytes = 64 << 10

// alertRequest is the wire form of an alert. Pointers let the validator tell
// a missing field from an empty one.
type alertRequest struct {
	Kind        *templates.Kind `json:"kind" validate:"required"`
	Group       *string         `json:"group" validate:"required"`
	Name        *string         `json:"name" validate:"required"`
	Description *string         `json:"description"`
}

// DecodeError reports an alert body the handler could not accept.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode alert: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *Handler) decodeAlert(w http.ResponseWriter, r *http.Request) (dispatch.Event, error) {
	var req alertRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		return dispatch.Event{}, &DecodeError{Err: err}
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			err = errors.Newf("missing required field(s): %s", strings.Join(fields, ", "))
		}
		return dispatch.Event{}, &DecodeError{Err: err}
	}

	return dispatch.Event{
		Kind:        *req.Kind,
		Group:       *req.Group,
		Name:        *req.Name,
		Description: req.Description,
	}, nil
}
