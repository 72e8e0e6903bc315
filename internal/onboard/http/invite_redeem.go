package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
)

type InviteRedeemHandler struct {
	RedemptionService *service.RedemptionService
	Now               func() time.Time
}

// ServeHTTP redeems an invite code and provisions the account.
// This is a public endpoint.
func (h *InviteRedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req onboardsdk.RedeemInviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidRequest(w, "Invalid JSON body")
		return
	}
	if err := validateStruct(req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	account, err := h.RedemptionService.Redeem(ctx, service.RedeemRequest{
		Code:     req.Code,
		Email:    req.Email,
		Password: req.Password,
	}, h.Now())
	if err != nil {
		writeServiceError(ctx, w, err, "redeem invite")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, onboardsdk.RedeemInviteResponse{
		AccountID: account.ID,
		Email:     account.Email,
	})
}
