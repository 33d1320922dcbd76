package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/grocerylist/pkg/auth"
	"github.com/shashiranjanraj/grocerylist/pkg/ws"
)

// LiveController upgrades list pages to the owner's change feed.
type LiveController struct {
	hub *ws.Hub
}

func NewLiveController(hub *ws.Hub) *LiveController {
	return &LiveController{hub: hub}
}

// Feed needs an authenticated caller; mount it behind middleware.RequireUser.
func (lc *LiveController) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	ws.Upgrade(w, r, lc.hub, userID)
}
