package service

import (
	"testing"

	"github.com/pharmalink/pharmalink-backend/internal/order/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionAllowed(t *testing.T) {
	allStatuses := []string{
		repository.StatusPending,
		repository.StatusAccepted,
		repository.StatusPacked,
		repository.StatusShipped,
		repository.StatusDelivered,
		repository.StatusRejected,
	}

	allowed := map[[2]string]bool{
		{repository.StatusPending, repository.StatusAccepted}:  true,
		{repository.StatusPending, repository.StatusRejected}:  true,
		{repository.StatusAccepted, repository.StatusPacked}:   true,
		{repository.StatusPacked, repository.StatusShipped}:    true,
		{repository.StatusShipped, repository.StatusDelivered}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]string{from, to}]
			if got := TransitionAllowed(from, to); got != want {
				t.Errorf("TransitionAllowed(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTransitionAllowed_TerminalStates(t *testing.T) {
	// DELIVERED and REJECTED admit no further moves, including self-loops.
	for _, terminal := range []string{repository.StatusDelivered, repository.StatusRejected} {
		for _, to := range []string{
			repository.StatusPending, repository.StatusAccepted, repository.StatusPacked,
			repository.StatusShipped, repository.StatusDelivered, repository.StatusRejected,
		} {
			assert.False(t, TransitionAllowed(terminal, to), "from %s to %s", terminal, to)
		}
	}
}

func TestGenerateDeliveryOtp_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp, err := generateDeliveryOtp()
		require.NoError(t, err)

		require.Len(t, otp, 6)
		for _, r := range otp {
			assert.True(t, r >= '0' && r <= '9', "otp %q has non-digit %q", otp, r)
		}
		seen[otp] = true
	}

	// 50 draws from a million values colliding down to a handful would point
	// at a broken generator.
	assert.Greater(t, len(seen), 40)
}
