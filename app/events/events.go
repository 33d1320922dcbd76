// Package events defines the grocery list domain events and wires their
// listeners.
package events

import (
	"context"
	"encoding/json"

	"github.com/shashiranjanraj/grocerylist/app/models"
	"github.com/shashiranjanraj/grocerylist/pkg/event"
	"github.com/shashiranjanraj/grocerylist/pkg/logger"
	"github.com/shashiranjanraj/grocerylist/pkg/metrics"
)

const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
)

// ProductChanged is the payload of every product event. It is fired only
// after the change has been flushed.
type ProductChanged struct {
	Op        string `json:"op"`
	ProductID uint   `json:"id"`
	OwnerID   uint   `json:"-"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Changed builds the payload for op ("created", "updated", "deleted").
func Changed(op string, p *models.Product) ProductChanged {
	return ProductChanged{Op: op, ProductID: p.ID, OwnerID: p.OwnerID, Name: p.Name, Quantity: p.Quantity}
}

// Publisher pushes a message to one owner's open pages.
type Publisher interface {
	Publish(owner uint, data []byte)
}

// Subscribe registers the audit log, mutation counter and live-feed
// listeners on bus. live may be nil.
func Subscribe(bus *event.Bus, live Publisher) {
	for _, name := range []string{ProductCreated, ProductUpdated, ProductDeleted} {
		bus.Listen(name, audit)
		bus.Listen(name, count)
		if live != nil {
			bus.Listen(name, push(live))
		}
	}
}

func audit(ctx context.Context, payload interface{}) {
	e, ok := payload.(ProductChanged)
	if !ok {
		return
	}
	logger.WithCtx(ctx).Info("grocery list changed",
		"op", e.Op,
		"product_id", e.ProductID,
		"owner_id", e.OwnerID,
	)
}

func count(_ context.Context, payload interface{}) {
	if e, ok := payload.(ProductChanged); ok {
		metrics.ProductMutations.WithLabelValues(e.Op).Inc()
	}
}

func push(live Publisher) event.Handler {
	return func(ctx context.Context, payload interface{}) {
		e, ok := payload.(ProductChanged)
		if !ok {
			return
		}
		data, err := json.Marshal(e)
		if err != nil {
			logger.WithCtx(ctx).Error("encode live event", "error", err)
			return
		}
		live.Publish(e.OwnerID, data)
	}
}
