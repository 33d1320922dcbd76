// Package validate runs struct-tag validation:
//
//	type Product struct {
//	    Name     string `form:"name"     validate:"required,max=255"`
//	    Quantity int    `form:"quantity" validate:"required,gte=1,lte=9999"`
//	}
//
//	errs := validate.Struct(&p) // map[field]message, empty when valid
//
// Field names come from the form tag, then the json tag, then the
// lowercased Go name. Only the first failing rule per field is reported.
//
// Built-in rules:
//
//	required, nullable, email, numeric, integer, alpha_dash,
//	min=N, max=N (length for strings, value for numbers),
//	gt=N, gte=N, lt=N, lte=N, between=lo,hi, in=a,b,c, not_in=a,b,c,
//	regex=pattern, confirmed (<field>_confirmation must match)
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Errors maps field name to message.
type Errors map[string]string

func (e Errors) HasErrors() bool { return len(e) > 0 }

// Field is what a Rule sees.
type Field struct {
	Name   string
	Value  reflect.Value
	Param  string
	Parent reflect.Value
}

func (f Field) raw() string { return fmt.Sprintf("%v", f.Value.Interface()) }

// Rule returns a message when the field fails, "" otherwise.
type Rule func(f Field) string

var (
	mu    sync.RWMutex
	rules = map[string]Rule{
		"required":   required,
		"email":      email,
		"numeric":    numeric,
		"integer":    integer,
		"alpha_dash": alphaDash,
		"min":        minRule,
		"max":        maxRule,
		"gt":         compare(func(a, b float64) bool { return a > b }, "greater than"),
		"gte":        compare(func(a, b float64) bool { return a >= b }, "greater than or equal to"),
		"lt":         compare(func(a, b float64) bool { return a < b }, "less than"),
		"lte":        compare(func(a, b float64) bool { return a <= b }, "less than or equal to"),
		"between":    between,
		"in":         in,
		"not_in":     notIn,
		"regex":      regex,
		"confirmed":  confirmed,
	}
)

// Register adds or replaces a rule.
func Register(name string, r Rule) {
	mu.Lock()
	rules[name] = r
	mu.Unlock()
}

func lookup(name string) (Rule, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := rules[name]
	return r, ok
}

// Struct validates every exported field of v carrying a validate tag.
func Struct(v interface{}) Errors {
	errs := Errors{}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}

		name := FieldName(sf)
		value := rv.Field(i)
		parsed := splitRules(tag)
		if hasRule(parsed, "nullable") && isEmpty(value) {
			continue
		}

		for _, rule := range parsed {
			key, param, _ := strings.Cut(rule, "=")
			if key == "nullable" {
				continue
			}
			fn, ok := lookup(key)
			if !ok {
				panic(fmt.Sprintf("validate: unknown rule %q on %s.%s", key, rt.Name(), sf.Name))
			}
			if msg := fn(Field{Name: name, Value: value, Param: param, Parent: rv}); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	return errs
}

// FieldName is the external name of a struct field.
func FieldName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// splitRules splits on commas; a token that is not a rule name continues
// the parameter of the rule before it ("in=a,b,c", "between=1,10").
func splitRules(tag string) []string {
	var out []string
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		key, _, _ := strings.Cut(tok, "=")
		if _, known := lookup(key); (known || key == "nullable") || len(out) == 0 {
			out = append(out, tok)
			continue
		}
		out[len(out)-1] += "," + tok
	}
	return out
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	reCache sync.Map
)

func required(f Field) string {
	if isEmpty(f.Value) {
		return fmt.Sprintf("The %s field is required.", f.Name)
	}
	return ""
}

func email(f Field) string {
	if !emailRE.MatchString(f.raw()) {
		return fmt.Sprintf("The %s must be a valid email address.", f.Name)
	}
	return ""
}

func numeric(f Field) string {
	if _, err := strconv.ParseFloat(f.raw(), 64); err != nil {
		return fmt.Sprintf("The %s field must be a number.", f.Name)
	}
	return ""
}

func integer(f Field) string {
	if _, err := strconv.ParseInt(f.raw(), 10, 64); err != nil {
		return fmt.Sprintf("The %s field must be an integer.", f.Name)
	}
	return ""
}

func alphaDash(f Field) string {
	for _, c := range f.raw() {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
			return fmt.Sprintf("The %s field may only contain letters, numbers, dashes, and underscores.", f.Name)
		}
	}
	return ""
}

func minRule(f Field) string {
	n := parseFloat(f.Param)
	if isNumericKind(f.Value) {
		if toFloat(f.Value) < n {
			return fmt.Sprintf("The %s must be at least %s.", f.Name, f.Param)
		}
		return ""
	}
	if float64(len([]rune(f.raw()))) < n {
		return fmt.Sprintf("The %s must be at least %s characters.", f.Name, f.Param)
	}
	return ""
}

func maxRule(f Field) string {
	n := parseFloat(f.Param)
	if isNumericKind(f.Value) {
		if toFloat(f.Value) > n {
			return fmt.Sprintf("The %s must not be greater than %s.", f.Name, f.Param)
		}
		return ""
	}
	if float64(len([]rune(f.raw()))) > n {
		return fmt.Sprintf("The %s must not exceed %s characters.", f.Name, f.Param)
	}
	return ""
}

func compare(ok func(v, param float64) bool, words string) Rule {
	return func(f Field) string {
		if !ok(toFloat(f.Value), parseFloat(f.Param)) {
			return fmt.Sprintf("The %s must be %s %s.", f.Name, words, f.Param)
		}
		return ""
	}
}

func between(f Field) string {
	lo, hi, found := strings.Cut(f.Param, ",")
	if !found {
		return ""
	}
	l, h := parseFloat(lo), parseFloat(hi)
	if isNumericKind(f.Value) {
		if v := toFloat(f.Value); v < l || v > h {
			return fmt.Sprintf("The %s must be between %s and %s.", f.Name, lo, hi)
		}
		return ""
	}
	if n := float64(len([]rune(f.raw()))); n < l || n > h {
		return fmt.Sprintf("The %s must be between %s and %s characters.", f.Name, lo, hi)
	}
	return ""
}

func listed(f Field) bool {
	raw := f.raw()
	for _, a := range strings.Split(f.Param, ",") {
		if raw == strings.TrimSpace(a) {
			return true
		}
	}
	return false
}

func in(f Field) string {
	if !listed(f) {
		return fmt.Sprintf("The selected %s is invalid.", f.Name)
	}
	return ""
}

func notIn(f Field) string {
	if listed(f) {
		return fmt.Sprintf("The selected %s is invalid.", f.Name)
	}
	return ""
}

func regex(f Field) string {
	cached, ok := reCache.Load(f.Param)
	if !ok {
		re, err := regexp.Compile(f.Param)
		if err != nil {
			return fmt.Sprintf("The %s has an invalid validation pattern.", f.Name)
		}
		cached, _ = reCache.LoadOrStore(f.Param, re)
	}
	if !cached.(*regexp.Regexp).MatchString(f.raw()) {
		return fmt.Sprintf("The %s format is invalid.", f.Name)
	}
	return ""
}

func confirmed(f Field) string {
	want := f.Name + "_confirmation"
	rt := f.Parent.Type()
	for i := 0; i < rt.NumField(); i++ {
		if FieldName(rt.Field(i)) == want {
			if fmt.Sprintf("%v", f.Parent.Field(i).Interface()) == f.raw() {
				return ""
			}
			break
		}
	}
	return fmt.Sprintf("The %s confirmation does not match.", f.Name)
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
