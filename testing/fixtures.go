// Package testing provides test utilities and database setup for testing the shortener
package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomTestCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// CreateTestLink creates an active link with a zeroed aggregate row
func (tf *TestFixtures) CreateTestLink(targetURL string) (*models.Link, error) {
	if targetURL == "" {
		targetURL = fmt.Sprintf("https://example.com/page/%d", rand.Intn(100000))
	}

	link := &models.Link{
		UUID:      uuid.New(),
		Code:      randomTestCode(7),
		TargetURL: targetURL,
		IsActive:  utils.ToPtr(true),
		CreatedAt: utils.UTCNow(),
		UpdatedAt: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link: %w", err)
	}

	agg := &models.LinkAggregate{
		LinkID:       link.ID,
		TopReferrers: json.RawMessage("[]"),
		DailyClicks:  json.RawMessage("[]"),
	}
	if err := tf.DB.DB.Create(agg).Error; err != nil {
		return nil, fmt.Errorf("failed to create test link aggregate: %w", err)
	}

	return link, nil
}

// CreateTestVisitEvent creates a visit event with the given masked address and referrer host
func (tf *TestFixtures) CreateTestVisitEvent(linkID uint, maskedAddress, referrerHost string, occurredAt time.Time) (*models.VisitEvent, error) {
	event := &models.VisitEvent{
		LinkID:        linkID,
		MaskedAddress: maskedAddress,
		Browser:       models.BrowserChrome,
		OS:            models.OSLinux,
		ReferrerHost:  referrerHost,
		OccurredAt:    occurredAt,
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create test visit event: %w", err)
	}
	return event, nil
}

// CreateTestAdmin creates an active admin with the given username and password
func (tf *TestFixtures) CreateTestAdmin(username, password string) (*models.Admin, error) {
	if username == "" {
		username = fmt.Sprintf("admin_%d", rand.Intn(100000))
	}
	if password == "" {
		password = "TestPass123!"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{
		UUID:         uuid.New(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		IsActive:     utils.ToPtr(true),
		CreatedAt:    utils.UTCNow(),
		UpdatedAt:    utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create test admin: %w", err)
	}
	return admin, nil
}
