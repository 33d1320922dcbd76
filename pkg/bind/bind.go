// Package bind decodes submitted form values into form-tagged struct fields.
//
// Values are read from keys shaped like "product[name]", the way a named
// HTML form posts them:
//
//	<input name="product[name]">  →  Product.Name `form:"name"`
package bind

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/grocerylist/config"
	"github.com/shashiranjanraj/grocerylist/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 4 MB).
func maxBodyBytes() int64 {
	n := config.Int("MAX_BODY_BYTES", 4<<20)
	if n <= 0 {
		return 4 << 20
	}
	return int64(n)
}

// ParseForm parses r's urlencoded body with the size cap applied.
func ParseForm(r *http.Request) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())
	}
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return fmt.Errorf("invalid form body: %w", err)
	}
	return nil
}

// Key is the submitted key of field in form name.
func Key(name, field string) string { return name + "[" + field + "]" }

// Submitted reports whether values carry any key of form name.
func Submitted(values url.Values, name string) bool {
	prefix := name + "["
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Values decodes the fields of form name into dest, which must point to a
// struct. Fields without a form tag are never touched. A tagged field whose
// key is missing is reset to its zero value. Values that do not parse for
// the field's type are reported per field and leave the field zeroed.
func Values(values url.Values, name string, dest interface{}) (validate.Errors, error) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind: destination must be a pointer to struct, got %T", dest)
	}
	rv = rv.Elem()
	rt := rv.Type()

	errs := validate.Errors{}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag, _, _ := strings.Cut(sf.Tag.Get("form"), ",")
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}

		fv := rv.Field(i)
		raw, present := values[Key(name, tag)]
		fv.Set(reflect.Zero(fv.Type()))
		if !present || len(raw) == 0 {
			continue
		}

		if err := setValue(fv, strings.TrimSpace(raw[0])); err != nil {
			errs[tag] = "This value is not valid."
		}
	}
	return errs, nil
}

func setValue(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if s == "" {
			return nil
		}
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if s == "" {
			return nil
		}
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Bool:
		switch strings.ToLower(s) {
		case "1", "on", "true", "yes":
			v.SetBool(true)
		case "", "0", "off", "false", "no":
		default:
			return fmt.Errorf("not a boolean: %q", s)
		}
	default:
		return fmt.Errorf("unsupported field kind %s", v.Kind())
	}
	return nil
}
