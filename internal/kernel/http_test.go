package kernel_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/models"
	_ "github.com/shashiranjanraj/grocerylist/database/migrations"
	"github.com/shashiranjanraj/grocerylist/database/seeders"
	"github.com/shashiranjanraj/grocerylist/internal/kernel"
	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/cache"
	"github.com/shashiranjanraj/grocerylist/pkg/database"
	"github.com/shashiranjanraj/grocerylist/pkg/migration"
	"github.com/shashiranjanraj/grocerylist/pkg/testkit"
)

func boot(t *testing.T) (*kernel.Kernel, *gorm.DB) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.Open(ctx, "sqlite", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	_, err = migration.New(db, io.Discard).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, seeders.SeedDemo(ctx, db))

	k, err := kernel.New(db, cache.NewMemoryStore())
	require.NoError(t, err)
	go k.Run(ctx)
	return k, db
}

func demoUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.Where("email = ?", seeders.DemoEmail).First(&u).Error)
	return u
}

func TestLoginAndManageList(t *testing.T) {
	k, db := boot(t)
	b := testkit.NewBrowser(t, k.Handler())

	testkit.AssertRedirect(t, b.Get("/grocerylist"), http.StatusFound, "/login")
	testkit.AssertRedirect(t, b.Login("/login", seeders.DemoEmail, seeders.DemoPassword), http.StatusFound, "/grocerylist")

	list := b.Get("/grocerylist")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Text(), "Milk")
	assert.NotEmpty(t, list.Header().Get("X-Request-ID"))

	res := b.Submit("/grocerylist/create", "product", url.Values{"name": {"Apples"}, "quantity": {"6"}})
	require.Equal(t, http.StatusFound, res.Code)
	show := b.Get(res.Location())
	require.Equal(t, http.StatusOK, show.Code)
	assert.Contains(t, show.Text(), "Apples")

	var stored models.Product
	require.NoError(t, db.Where("name = ?", "Apples").First(&stored).Error)
	assert.Equal(t, demoUser(t, db).ID, stored.OwnerID)
	assert.Equal(t, 6, stored.Quantity)

	upd := b.Submit(res.Location()+"/update", "product", url.Values{
		"name": {"Green apples"}, "quantity": {"8"}, "owner_id": {"999"},
	})
	testkit.AssertRedirect(t, upd, http.StatusFound, res.Location())

	var updated models.Product
	require.NoError(t, db.First(&updated, stored.ID).Error)
	assert.Equal(t, "Green apples", updated.Name)
	assert.Equal(t, 8, updated.Quantity)
	assert.Equal(t, stored.OwnerID, updated.OwnerID)
	assert.Equal(t, stored.CreatedAt.Unix(), updated.CreatedAt.Unix())

	del := b.Submit(res.Location()+"/delete", "confirm", nil)
	testkit.AssertRedirect(t, del, http.StatusFound, "/grocerylist")
	assert.NotContains(t, b.Get("/grocerylist").Text(), "Green apples")

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", stored.ID).Count(&count).Error)
	assert.Zero(t, count, "soft-deleted rows are hidden")
}

func TestUnknownPathRendersNotFoundPage(t *testing.T) {
	k, _ := boot(t)
	res := testkit.NewBrowser(t, k.Handler()).Get("/nope")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Text(), "Not Found")
}

func TestGraphQLWithBearerToken(t *testing.T) {
	k, db := boot(t)
	b := testkit.NewBrowser(t, k.Handler())

	anon := b.Do(graphqlRequest(`{ groceries { name } }`))
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	token, err := auth.GenerateToken(demoUser(t, db).ID, time.Minute)
	require.NoError(t, err)
	b.SetHeader("Authorization", "Bearer "+token)

	res := b.Do(graphqlRequest(`{ groceries { name quantity } }`))
	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Data struct {
			Groceries []struct {
				Name string `json:"name"`
			} `json:"groceries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Data.Groceries, 3)
	assert.Equal(t, "Milk", body.Data.Groceries[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	k, _ := boot(t)
	b := testkit.NewBrowser(t, k.Handler())
	b.Get("/login")

	res := b.Get("/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Text(), "grocerylist_http_requests_total")
}

func TestLiveFeedPushesChanges(t *testing.T) {
	k, db := boot(t)
	srv := httptest.NewServer(k.Handler())
	t.Cleanup(srv.Close)

	user := demoUser(t, db)
	token, err := auth.GenerateToken(user.ID, time.Minute)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/grocerylist/live"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "anonymous upgrade is refused")
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + token}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return k.Hub.ClientCount(user.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	b := testkit.NewBrowser(t, k.Handler())
	b.Login("/login", seeders.DemoEmail, seeders.DemoPassword)
	b.Submit("/grocerylist/create", "product", url.Values{"name": {"Pears"}, "quantity": {"2"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"created","id":4,"name":"Pears","quantity":2}`, string(msg))
}

func graphqlRequest(query string) *http.Request {
	body, _ := json.Marshal(map[string]string{"query": query})
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}
