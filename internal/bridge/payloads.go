package bridge

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/anote/internal/ids"
	"github.com/dshills/anote/pkg/types"
)

// CreateNotePayload is the payload of create_note. A nil FolderID files
// the note into the Inbox.
type CreateNotePayload struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	FolderID *string `json:"folder_id" validate:"omitnil,id"`
}

// UpdateNotePayload is the payload of update_note. The note is
// overwritten: an omitted Title or Body is stored as "". Nil UpdatedAt
// means now.
type UpdateNotePayload struct {
	ID        string `json:"id" validate:"required,id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt *int64 `json:"updated_at" validate:"omitnil,gte=0"`
}

// SearchNotesPayload is the payload of search_notes
type SearchNotesPayload struct {
	Query *string `json:"query"`
	Limit *int    `json:"limit"`
}

// GetNotePayload is the payload of get_note
type GetNotePayload struct {
	ID string `json:"id" validate:"required,id"`
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator that knows the "id" tag.
func NewValidator() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// registration only fails for an empty tag or a nil func
	_ = v.RegisterValidation("id", func(fl validator.FieldLevel) bool {
		return ids.Valid(fl.Field().String())
	})

	return &Validator{v: v}
}

// Validate checks s and returns a VALIDATION error naming every bad field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return types.Validation(err.Error())
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		msgs = append(msgs, e.Field()+" "+friendlyMessage(e))
	}
	sort.Strings(msgs)
	return types.Validation(strings.Join(msgs, "; "))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "id":
		return fmt.Sprintf("must be 1-%d ASCII letters or digits", ids.MaxLength)
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return "is invalid"
	}
}
