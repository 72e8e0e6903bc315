package onboardsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// RedeemInvite exchanges an invite code for a new account.
// This is a public endpoint (no authentication required).
func (c *SDKClient) RedeemInvite(ctx context.Context, req RedeemInviteRequest) (*RedeemInviteResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/invites/redeem", "", req)
	if err != nil {
		return nil, err
	}

	var redeemResp RedeemInviteResponse
	if err := decodeJSON(resp, &redeemResp, http.StatusCreated); err != nil {
		return nil, err
	}
	return &redeemResp, nil
}

// IssueInvite creates an invite. Requires the invites:write scope.
// The returned code is not retrievable later.
func (s *Session) IssueInvite(ctx context.Context, req IssueInviteRequest) (*IssueInviteResponse, error) {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/invites", s.token, req)
	if err != nil {
		return nil, err
	}

	var issued IssueInviteResponse
	if err := decodeJSON(resp, &issued, http.StatusCreated); err != nil {
		return nil, err
	}
	return &issued, nil
}

// ListInvitesOptions filters ListInvites. Zero values list everything with
// the server's default page size.
type ListInvitesOptions struct {
	Status string // unused, used or expired
	Limit  int
}

// ListInvites returns invites newest first. Requires the invites:read scope.
func (s *Session) ListInvites(ctx context.Context, opts ListInvitesOptions) ([]Invite, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/v1/invites"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil)
	if err != nil {
		return nil, err
	}

	var list ListInvitesResponse
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return list.Invites, nil
}
