package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/service"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/httpx"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	IssuanceService   *service.IssuanceService
	RedemptionService *service.RedemptionService

	// Rate limits; set before ApplyRoutes.
	RedeemLimit httpx.RateLimitConfig
	IssuerLimit httpx.RateLimitConfig

	// Now is the clock handed to the services.
	Now func() time.Time
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		RedeemLimit:  httpx.RedeemLimit,
		IssuerLimit:  httpx.IssuerLimit,
		Now:          time.Now,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recoverer,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerInvites()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerInvites() {
	issueHandler := &InviteIssueHandler{IssuanceService: r.IssuanceService, Now: r.Now}
	listHandler := &InviteListHandler{IssuanceService: r.IssuanceService, Now: r.Now}
	redeemHandler := &InviteRedeemHandler{RedemptionService: r.RedemptionService, Now: r.Now}

	// POST /v1/invites - issuer operation, limited per issuer
	securedIssue := httpx.Chain(issueHandler,
		httpx.AuthnMiddleware(r.verifier),             // verify JWT (iss/exp)
		httpx.RequireAnyScope(jwtx.ScopeInvitesWrite), // enforce scope
		httpx.RateLimitBySubject(r.IssuerLimit),
	)

	// GET /v1/invites - issuer read
	securedList := httpx.Chain(listHandler,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(jwtx.ScopeInvitesRead, jwtx.ScopeInvitesWrite),
		httpx.RateLimitBySubject(r.IssuerLimit),
	)

	r.Mux.Handle("POST /v1/invites", securedIssue)
	r.Mux.Handle("GET /v1/invites", securedList)

	// POST /v1/invites/redeem - public, strict rate limit by IP against code guessing
	r.Mux.Handle("POST /v1/invites/redeem",
		httpx.Chain(redeemHandler,
			httpx.RateLimitByIP(r.RedeemLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
