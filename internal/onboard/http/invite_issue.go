package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
)

type InviteIssueHandler struct {
	IssuanceService *service.IssuanceService
	Now             func() time.Time
}

// ServeHTTP issues an invite and returns its raw code. Requires invites:write.
func (h *InviteIssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req onboardsdk.IssueInviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeInvalidRequest(w, "Invalid JSON body")
		return
	}
	if err := validateStruct(req); err != nil {
		writeInvalidRequest(w, err.Error())
		return
	}

	issued, err := h.IssuanceService.Issue(ctx, service.IssueRequest{
		Code:      req.Code,
		Meta:      req.Meta,
		ExpiresAt: req.ExpiresAt,
		IssuedBy:  httpx.SubjectFromContext(ctx),
	}, h.Now())
	if err != nil {
		writeServiceError(ctx, w, err, "issue invite")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, onboardsdk.IssueInviteResponse{
		ID:        issued.Invite.ID,
		Code:      issued.Code,
		ExpiresAt: *issued.Invite.ExpiresAt,
	})
}
