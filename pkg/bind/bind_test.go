package bind_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/grocerylist/pkg/bind"
)

type item struct {
	OwnerID  uint
	Name     string  `form:"name"`
	Quantity int     `form:"quantity"`
	Price    float64 `form:"price"`
	Bought   bool    `form:"bought"`
}

func TestValuesFillsTaggedFields(t *testing.T) {
	v := url.Values{}
	v.Set("product[name]", "  Milk ")
	v.Set("product[quantity]", "3")
	v.Set("product[price]", "1.25")
	v.Set("product[bought]", "on")
	v.Set("product[OwnerID]", "99")

	dest := item{OwnerID: 7}
	errs, err := bind.Values(v, "product", &dest)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, item{OwnerID: 7, Name: "Milk", Quantity: 3, Price: 1.25, Bought: true}, dest)
}

func TestValuesClearsMissingFields(t *testing.T) {
	v := url.Values{"product[name]": {"Bread"}}
	dest := item{Name: "Milk", Quantity: 4}
	_, err := bind.Values(v, "product", &dest)
	require.NoError(t, err)
	assert.Equal(t, "Bread", dest.Name)
	assert.Zero(t, dest.Quantity)
}

func TestValuesReportsUnparsable(t *testing.T) {
	v := url.Values{"product[name]": {"Eggs"}, "product[quantity]": {"a dozen"}}
	var dest item
	errs, err := bind.Values(v, "product", &dest)
	require.NoError(t, err)
	assert.Equal(t, "This value is not valid.", errs["quantity"])
	assert.Zero(t, dest.Quantity)
}

func TestValuesRejectsNonPointer(t *testing.T) {
	_, err := bind.Values(url.Values{}, "product", item{})
	assert.Error(t, err)
}

func TestSubmitted(t *testing.T) {
	assert.True(t, bind.Submitted(url.Values{"confirm[_token]": {"x"}}, "confirm"))
	assert.False(t, bind.Submitted(url.Values{"product[name]": {"x"}}, "confirm"))
}

func TestParseFormCapsBody(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "16")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("product%5Bname%5D="+strings.Repeat("x", 64)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Error(t, bind.ParseForm(req))
}
