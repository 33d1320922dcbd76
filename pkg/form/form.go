// Package form handles a named HTML form submission: CSRF check, binding
// into a typed object and validation.
//
//	p := models.Product{OwnerID: user.ID, Quantity: 1}
//	f := form.New("product", &p)
//	if err := f.Handle(r); err != nil {
//	    return err
//	}
//	if f.IsSubmitted() && f.IsValid() {
//	    // p now holds the submitted values
//	}
//
// Bound values reach Data only when the submission is valid, so an invalid
// submission never touches the object being edited.
package form

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/shashiranjanraj/grocerylist/pkg/bind"
	"github.com/shashiranjanraj/grocerylist/pkg/httperr"
	"github.com/shashiranjanraj/grocerylist/pkg/session"
	"github.com/shashiranjanraj/grocerylist/pkg/validate"
)

// TokenField is the form field carrying the CSRF token.
const TokenField = "_token"

const csrfMessage = "The CSRF token is invalid. Please try to resubmit the form."

// Confirm is the payload of forms that only carry a CSRF token.
type Confirm struct{}

type Form[T any] struct {
	Name   string
	Data   *T
	Errors validate.Errors

	submitted bool
	values    url.Values
	token     string
}

func New[T any](name string, data *T) *Form[T] {
	return &Form[T]{Name: name, Data: data, Errors: validate.Errors{}}
}

// Handle inspects r. Only POST requests carrying at least one key of this
// form count as a submission. A malformed body is a ValidationFailed error.
func (f *Form[T]) Handle(r *http.Request) error {
	sess := session.FromCtx(r.Context())
	f.token = CSRFToken(sess, f.Name)

	if r.Method != http.MethodPost {
		return nil
	}
	if err := bind.ParseForm(r); err != nil {
		return httperr.NewValidation("Malformed form submission", err)
	}
	if !bind.Submitted(r.PostForm, f.Name) {
		return nil
	}

	f.submitted = true
	f.values = r.PostForm

	candidate := *f.Data
	errs, err := bind.Values(r.PostForm, f.Name, &candidate)
	if err != nil {
		return fmt.Errorf("form %s: %w", f.Name, err)
	}
	for field, msg := range validate.Struct(&candidate) {
		if _, seen := errs[field]; !seen {
			errs[field] = msg
		}
	}
	if !ValidCSRF(sess, f.Name, r.PostForm.Get(bind.Key(f.Name, TokenField))) {
		errs[TokenField] = csrfMessage
	}

	f.Errors = errs
	if !errs.HasErrors() {
		*f.Data = candidate
	}
	return nil
}

func (f *Form[T]) IsSubmitted() bool { return f.submitted }

// IsValid is false for a form that was not submitted.
func (f *Form[T]) IsValid() bool { return f.submitted && !f.Errors.HasErrors() }

// Token is the CSRF token to embed in the rendered form.
func (f *Form[T]) Token() string { return f.token }

// FieldName is the input name for field ("product[name]").
func (f *Form[T]) FieldName(field string) string { return bind.Key(f.Name, field) }

// Error returns the message for field, "" when it passed.
func (f *Form[T]) Error(field string) string { return f.Errors[field] }

// GlobalErrors are errors not tied to a rendered field (CSRF).
func (f *Form[T]) GlobalErrors() []string {
	if msg, ok := f.Errors[TokenField]; ok {
		return []string{msg}
	}
	return nil
}

// Value is what an input should show: the submitted text after a
// submission, the bound object's field otherwise.
func (f *Form[T]) Value(field string) string {
	if f.submitted {
		return f.values.Get(bind.Key(f.Name, field))
	}
	if f.Data == nil {
		return ""
	}

	rv := reflect.ValueOf(f.Data).Elem()
	if rv.Kind() != reflect.Struct {
		return ""
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag, _, _ := strings.Cut(rt.Field(i).Tag.Get("form"), ",")
		if tag == field {
			return fmt.Sprintf("%v", rv.Field(i).Interface())
		}
	}
	return ""
}
