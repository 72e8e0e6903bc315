package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
)

type InviteListHandler struct {
	IssuanceService *service.IssuanceService
	Now             func() time.Time
}

// ServeHTTP lists invites newest first, optionally filtered by ?status=.
// Digests are never part of the response.
func (h *InviteListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeInvalidRequest(w, "limit must be an integer")
			return
		}
		limit = n
	}

	now := h.Now()
	invites, err := h.IssuanceService.ListInvites(ctx, domain.InviteStatus(q.Get("status")), limit, now)
	if err != nil {
		writeServiceError(ctx, w, err, "list invites")
		return
	}

	resp := onboardsdk.ListInvitesResponse{Invites: make([]onboardsdk.Invite, 0, len(invites))}
	for _, inv := range invites {
		resp.Invites = append(resp.Invites, onboardsdk.Invite{
			ID:        inv.ID,
			Status:    string(inv.Status(now)),
			Meta:      inv.Meta,
			ExpiresAt: inv.ExpiresAt,
			UsedAt:    inv.UsedAt,
			UsedBy:    inv.UsedBy,
			CreatedAt: inv.CreatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
