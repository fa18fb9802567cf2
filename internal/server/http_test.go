package server

import (
	"net/http"
	"testing"

	bizErrors "github.com/jamesmaccoy/yocogoogle-sub002/internal/errors"

	"github.com/stretchr/testify/require"
)

func TestMapErrorStatus(t *testing.T) {
	// Transport-level codes pass through.
	require.Equal(t, http.StatusUnauthorized, mapErrorStatus(http.StatusUnauthorized))
	require.Equal(t, http.StatusForbidden, mapErrorStatus(http.StatusForbidden))

	// Biz codes map to their designated statuses.
	require.Equal(t, http.StatusNotFound, mapErrorStatus(bizErrors.ErrCodeListingNotFound))
	require.Equal(t, http.StatusNotFound, mapErrorStatus(bizErrors.ErrCodePlanNotFound))
	require.Equal(t, http.StatusUnauthorized, mapErrorStatus(bizErrors.ErrCodeWebhookBadSignature))
	require.Equal(t, http.StatusBadRequest, mapErrorStatus(bizErrors.ErrCodeInvalidDate))
	require.Equal(t, http.StatusBadRequest, mapErrorStatus(bizErrors.ErrCodeWebhookBadPayload))

	// Anything outside the known spaces is a server fault.
	require.Equal(t, http.StatusInternalServerError, mapErrorStatus(999999))
}
