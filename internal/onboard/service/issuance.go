package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/onboard/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/onboard/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// Invite lifetime defaults.
const (
	DefaultInviteTTL = 7 * 24 * time.Hour
	MaxInviteTTL     = 90 * 24 * time.Hour
)

// MetaIssuedBy records the issuer subject on every invite.
const MetaIssuedBy = "issued_by"

type IssueRequest struct {
	// Code is an issuer chosen code. Empty generates one.
	Code string

	// Meta is stored verbatim apart from normalizing a bound email.
	Meta map[string]any

	// ExpiresAt defaults to now plus the service's default TTL.
	ExpiresAt *time.Time

	// IssuedBy is the authenticated issuer, recorded in meta.
	IssuedBy string
}

// IssuedInvite is the stored invite plus the raw code, which is only ever
// available at this point.
type IssuedInvite struct {
	Invite domain.Invite
	Code   string
}

type IssuanceService struct {
	Store store.Store
	Codes *cryptox.CodeHasher

	// DefaultTTL and MaxTTL fall back to DefaultInviteTTL and MaxInviteTTL.
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

// Issue stores a new invite and returns its raw code.
func (s *IssuanceService) Issue(ctx context.Context, req IssueRequest, now time.Time) (IssuedInvite, error) {
	log := slogx.FromContext(ctx)

	// 1. Pick the code.
	code, err := s.code(req.Code)
	if err != nil {
		log.Warn("invite issuance rejected", slog.String("reason", "malformed_code"))
		return IssuedInvite{}, err
	}

	// 2. Resolve expiry.
	expiresAt, err := s.expiry(req.ExpiresAt, now)
	if err != nil {
		log.Warn("invite issuance rejected", slog.String("reason", "bad_expiry"))
		return IssuedInvite{}, err
	}

	// 3. Meta.
	meta, err := normalizeMeta(req.Meta, req.IssuedBy)
	if err != nil {
		log.Warn("invite issuance rejected", slog.String("reason", "bad_meta"))
		return IssuedInvite{}, err
	}

	invite := domain.Invite{
		ID:        idx.NewAt(now).String(),
		CodeHash:  s.Codes.Hash(code),
		Meta:      meta,
		ExpiresAt: &expiresAt,
		CreatedAt: now,
	}

	// 4. Store the digest, never the code.
	if err := s.Store.Invites().CreateInvite(ctx, invite); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("invite issuance rejected", slog.String("reason", "duplicate_code"))
			return IssuedInvite{}, ErrDuplicateCode
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return IssuedInvite{}, fmt.Errorf("create invite: %w", err)
	}

	log.Info("invite issued",
		slog.String("invite_id", invite.ID),
		slog.Time("expires_at", expiresAt),
		slog.Bool("email_bound", meta[domain.MetaEmail] != nil),
	)

	return IssuedInvite{Invite: invite, Code: code}, nil
}

// ListInvites returns invites newest first. status may be empty.
func (s *IssuanceService) ListInvites(
	ctx context.Context,
	status domain.InviteStatus,
	limit int,
	now time.Time,
) ([]domain.Invite, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidRequest
	}
	if limit < 0 || limit > store.MaxListLimit {
		return nil, ErrInvalidRequest
	}

	invites, err := s.Store.Invites().ListInvites(ctx, store.ListInvitesFilter{
		Status: status,
		Now:    now,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	return invites, nil
}

func (s *IssuanceService) code(requested string) (string, error) {
	if requested == "" {
		return cryptox.GenerateCode()
	}
	code, err := cryptox.NormalizeCode(requested)
	if err != nil {
		return "", ErrInvalidRequest
	}
	return code, nil
}

func (s *IssuanceService) expiry(requested *time.Time, now time.Time) (time.Time, error) {
	defaultTTL, maxTTL := s.DefaultTTL, s.MaxTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultInviteTTL
	}
	if maxTTL <= 0 {
		maxTTL = MaxInviteTTL
	}

	if requested == nil {
		return now.Add(min(defaultTTL, maxTTL)).UTC(), nil
	}

	expiresAt := requested.UTC()
	if !expiresAt.After(now) || expiresAt.After(now.Add(maxTTL)) {
		return time.Time{}, ErrInvalidRequest
	}
	return expiresAt, nil
}

func normalizeMeta(in map[string]any, issuedBy string) (map[string]any, error) {
	meta := make(map[string]any, len(in)+1)
	maps.Copy(meta, in)

	if raw, ok := meta[domain.MetaEmail]; ok {
		email, isString := raw.(string)
		email = domain.NormalizeEmail(email)
		if !isString || !validEmail(email) {
			return nil, ErrInvalidRequest
		}
		meta[domain.MetaEmail] = email
	}

	if issuedBy != "" {
		meta[MetaIssuedBy] = issuedBy
	}
	return meta, nil
}
