package tests

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/services"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthroughCaptcha accepts one fixed challenge ID regardless of angle so
// login can be exercised without solving a real rotation.
type passthroughCaptcha struct {
	acceptedID string
}

func (c *passthroughCaptcha) GenerateRotate(ctx context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: c.acceptedID}, nil
}

func (c *passthroughCaptcha) VerifyRotate(ctx context.Context, challengeID string, userAngle float64) bool {
	return challengeID == c.acceptedID
}

func newAdminTokenService(t *testing.T) services.TokenService {
	t.Helper()
	svc, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)
	return svc
}

func TestAdminAuthFlowVerify(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		adminRepo := repository.NewAdminRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		tokenSvc := newAdminTokenService(t)
		captcha := &passthroughCaptcha{acceptedID: "challenge-1"}
		flow := businessflow.NewAdminAuthFlow(adminRepo, tokenSvc, captcha)
		ctx := testingutil.CreateTestContext()

		admin, err := fixtures.CreateTestAdmin("operator", "CorrectHorse9!")
		require.NoError(t, err)

		login := func(username, password, challengeID string) (*dto.AdminLoginResponse, error) {
			return flow.Verify(ctx, &dto.AdminCaptchaVerifyRequest{
				Username:    username,
				Password:    password,
				ChallengeID: challengeID,
				UserAngle:   42,
			}, nil)
		}

		t.Run("Success", func(t *testing.T) {
			resp, err := login("operator", "CorrectHorse9!", "challenge-1")
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, admin.ID, resp.Admin.ID)
			assert.NotEmpty(t, resp.Session.AccessToken)
			assert.NotEmpty(t, resp.Session.RefreshToken)

			claims, err := tokenSvc.ValidateAdminToken(resp.Session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, admin.ID, claims.AdminID)
			assert.Equal(t, "access", claims.TokenType)

			// Login stamps last_login_at
			reread, err := adminRepo.ByID(ctx, admin.ID)
			require.NoError(t, err)
			assert.NotNil(t, reread.LastLoginAt)
		})

		t.Run("BadCaptcha", func(t *testing.T) {
			_, err := login("operator", "CorrectHorse9!", "some-other-challenge")
			assert.True(t, businessflow.IsInvalidCaptcha(err))
		})

		t.Run("UnknownAdmin", func(t *testing.T) {
			_, err := login("ghost", "CorrectHorse9!", "challenge-1")
			assert.True(t, businessflow.IsAdminNotFound(err))
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := login("operator", "wrong-password", "challenge-1")
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("InactiveAdmin", func(t *testing.T) {
			inactive, err := fixtures.CreateTestAdmin("suspended", "CorrectHorse9!")
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(inactive).Update("is_active", false).Error)

			_, err = login("suspended", "CorrectHorse9!", "challenge-1")
			assert.True(t, businessflow.IsAdminInactive(err))
		})

		t.Run("MissingChallenge", func(t *testing.T) {
			_, err := login("operator", "CorrectHorse9!", "")
			assert.True(t, businessflow.IsInvalidCaptcha(err))
		})

		return nil
	})
	require.NoError(t, err)
}
