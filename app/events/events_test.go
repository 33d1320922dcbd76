package events_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/grocerylist/app/events"
	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/event"
)

type published struct {
	owner uint
	data  string
}

type fakeLive struct{ got []published }

func (f *fakeLive) Publish(owner uint, data []byte) {
	f.got = append(f.got, published{owner, string(data)})
}

func TestSubscribePushesToOwner(t *testing.T) {
	bus := event.NewBus()
	live := &fakeLive{}
	events.Subscribe(bus, live)

	p := &models.Product{Model: gorm.Model{ID: 8}, OwnerID: 3, Name: "Milk", Quantity: 2}
	bus.Fire(context.Background(), events.ProductCreated, events.Changed("created", p))

	require.Len(t, live.got, 1)
	assert.Equal(t, uint(3), live.got[0].owner)
	assert.JSONEq(t, `{"op":"created","id":8,"name":"Milk","quantity":2}`, live.got[0].data)
}

func TestSubscribeWithoutLiveFeed(t *testing.T) {
	bus := event.NewBus()
	events.Subscribe(bus, nil)
	assert.NotPanics(t, func() {
		bus.Fire(context.Background(), events.ProductDeleted, events.Changed("deleted", &models.Product{}))
	})
}
