package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedeemOutcomes(t *testing.T) {
	// Outcomes that would reveal whether a code exists collapse together.
	for _, outcome := range []redeemOutcome{
		outcomeMalformedCode,
		outcomeUnknownCode,
		outcomeAlreadyUsed,
		outcomeLostRace,
	} {
		require.ErrorIs(t, redeemOutcomes[outcome], ErrInvalidCode, "outcome %s", outcome)
	}

	require.ErrorIs(t, redeemOutcomes[outcomeExpired], ErrExpired)
	require.ErrorIs(t, redeemOutcomes[outcomeEmailMismatch], ErrEmailMismatch)
	require.ErrorIs(t, redeemOutcomes[outcomeAccountExists], ErrAccountExists)
	require.ErrorIs(t, redeemOutcomes[outcomeInvalidEmail], ErrInvalidRequest)
	require.ErrorIs(t, redeemOutcomes[outcomeInvalidPassword], ErrInvalidRequest)
}

func TestReject_UnknownOutcome(t *testing.T) {
	require.ErrorIs(t, reject(context.Background(), redeemOutcome("something_new")), ErrInvalidCode)
}
