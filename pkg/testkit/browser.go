// Package testkit drives an http.Handler the way a browser would: cookies
// persist between requests, redirects are not followed and CSRF tokens are
// scraped from rendered forms.
//
//	b := testkit.NewBrowser(t, handler)
//	b.Login("/login", "ann@example.com", "secret")
//	res := b.Submit("/grocerylist/create", "product", url.Values{"name": {"Milk"}, "quantity": {"2"}})
//	testkit.AssertRedirect(t, res, http.StatusFound, "/grocerylist/1")
package testkit

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Browser keeps a cookie jar across in-process requests.
type Browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func NewBrowser(t *testing.T, h http.Handler) *Browser {
	return &Browser{t: t, handler: h, cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

// SetHeader adds a header to every following request.
func (b *Browser) SetHeader(key, value string) { b.header.Set(key, value) }

// Response is a finished request.
type Response struct {
	*httptest.ResponseRecorder
}

// Text is the response body.
func (r *Response) Text() string { return r.Body.String() }

// Location is the redirect target, "" when none.
func (r *Response) Location() string { return r.Header().Get("Location") }

var inputRE = regexp.MustCompile(`<input[^>]*>`)
var attrRE = regexp.MustCompile(`(name|value)="([^"]*)"`)

// Input returns the value attribute of the input named name.
func (r *Response) Input(name string) (string, bool) {
	for _, tag := range inputRE.FindAllString(r.Text(), -1) {
		var n, v string
		for _, m := range attrRE.FindAllStringSubmatch(tag, -1) {
			if m[1] == "name" {
				n = html.UnescapeString(m[2])
			} else {
				v = html.UnescapeString(m[2])
			}
		}
		if n == name {
			return v, true
		}
	}
	return "", false
}

// Do sends req with the jar's cookies and stores the cookies it gets back.
func (b *Browser) Do(req *http.Request) *Response {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	for k, vs := range b.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return &Response{ResponseRecorder: rec}
}

func (b *Browser) Get(path string) *Response {
	b.t.Helper()
	return b.Do(httptest.NewRequest(http.MethodGet, path, nil))
}

// Post sends values urlencoded.
func (b *Browser) Post(path string, values url.Values) *Response {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.Do(req)
}

// Submit loads the form at path, copies its CSRF token and posts fields
// under the form's name ("name" becomes "product[name]").
func (b *Browser) Submit(path, form string, fields url.Values) *Response {
	b.t.Helper()
	page := b.Get(path)
	require.Equal(b.t, http.StatusOK, page.Code, "GET %s before submitting %s", path, form)

	token, ok := page.Input(form + "[_token]")
	require.True(b.t, ok, "no %s[_token] input on %s", form, path)

	values := url.Values{form + "[_token]": {token}}
	for k, vs := range fields {
		values[form+"["+k+"]"] = vs
	}
	return b.Post(path, values)
}

// Login submits the login form at path.
func (b *Browser) Login(path, email, password string) *Response {
	b.t.Helper()
	return b.Submit(path, "login", url.Values{"email": {email}, "password": {password}})
}

// AssertRedirect checks status and Location.
func AssertRedirect(t *testing.T, r *Response, status int, location string) {
	t.Helper()
	assert.Equal(t, status, r.Code, "status")
	assert.Equal(t, location, r.Location(), "Location")
}
