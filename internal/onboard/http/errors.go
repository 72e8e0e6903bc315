package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/onboardsdk"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

type errorMapping struct {
	err         error
	status      int
	code        string
	description string
}

// serviceErrors maps service errors to responses. Descriptions are fixed
// strings; nothing from the request or the store is echoed.
var serviceErrors = []errorMapping{
	{service.ErrInvalidCode, http.StatusBadRequest, onboardsdk.ErrorCodeInvalidCode, "invite code is invalid"},
	{service.ErrExpired, http.StatusGone, onboardsdk.ErrorCodeExpiredCode, "invite code has expired"},
	{service.ErrEmailMismatch, http.StatusForbidden, onboardsdk.ErrorCodeEmailMismatch, "invite is bound to a different email"},
	{service.ErrDuplicateCode, http.StatusConflict, onboardsdk.ErrorCodeDuplicateCode, "invite code already issued"},
	{service.ErrAccountExists, http.StatusConflict, onboardsdk.ErrorCodeAccountExists, "an account with this email already exists"},
	{service.ErrInvalidRequest, http.StatusBadRequest, onboardsdk.ErrorCodeInvalidRequest, "request is invalid"},
}

// writeServiceError writes the response for err. Unmapped errors are logged
// and become a generic 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			httpx.WriteError(w, m.status, m.code, m.description)
			return
		}
	}

	slogx.FromContext(ctx).Error("failed to "+op, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, onboardsdk.ErrorCodeServerError, "internal server error")
}

func writeInvalidRequest(w http.ResponseWriter, desc string) {
	httpx.WriteError(w, http.StatusBadRequest, onboardsdk.ErrorCodeInvalidRequest, desc)
}
