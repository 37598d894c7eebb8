package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchaServiceGenerateRotate(t *testing.T) {
	svc, err := NewCaptchaServiceRotate(2*time.Minute, 10, 220)
	require.NoError(t, err)
	ctx := context.Background()

	ch, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	require.NotNil(t, ch)
	assert.NotEmpty(t, ch.ID)
	assert.NotEmpty(t, ch.MasterImageBase64)
	assert.NotEmpty(t, ch.ThumbImageBase64)

	t.Run("ChallengeIDsAreUnique", func(t *testing.T) {
		other, err := svc.GenerateRotate(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, ch.ID, other.ID)
	})
}

func TestCaptchaServiceVerifyRotate(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownChallenge", func(t *testing.T) {
		svc, err := NewCaptchaServiceRotate(2*time.Minute, 10, 220)
		require.NoError(t, err)
		assert.False(t, svc.VerifyRotate(ctx, "nonexistent", 90))
	})

	t.Run("ChallengeIsOneShot", func(t *testing.T) {
		svc, err := NewCaptchaServiceRotate(2*time.Minute, 10, 220)
		require.NoError(t, err)

		ch, err := svc.GenerateRotate(ctx)
		require.NoError(t, err)

		// First attempt consumes the challenge whatever its outcome
		svc.VerifyRotate(ctx, ch.ID, 90)
		assert.False(t, svc.VerifyRotate(ctx, ch.ID, 90))
	})

	t.Run("ExpiredChallenge", func(t *testing.T) {
		svc, err := NewCaptchaServiceRotate(time.Nanosecond, 10, 220)
		require.NoError(t, err)

		ch, err := svc.GenerateRotate(ctx)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		assert.False(t, svc.VerifyRotate(ctx, ch.ID, 90))
	})
}
