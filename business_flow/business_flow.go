// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
)

// VisitContext holds the raw client context of one redirect. Any field may
// be empty; the anonymizer reduces all of them to sentinel values before
// anything is persisted.
type VisitContext struct {
	Address   string `json:"address"`
	UserAgent string `json:"user_agent"`
	Referrer  string `json:"referrer"`
}

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToLinkDTO converts a link model to its public DTO form
func ToLinkDTO(link models.Link, baseURL string) dto.LinkDTO {
	return dto.LinkDTO{
		UUID:      link.UUID.String(),
		Code:      link.Code,
		ShortURL:  baseURL + "/" + link.Code,
		TargetURL: link.TargetURL,
		Clicks:    link.Clicks,
		IsActive:  utils.IsTrue(link.IsActive),
		CreatedBy: link.CreatedBy,
		CreatedAt: link.CreatedAt.Format(time.RFC3339),
	}
}

// ToAdminDTOModel converts an admin model to its public DTO form
func ToAdminDTOModel(admin models.Admin) dto.AdminDTO {
	out := dto.AdminDTO{
		ID:       admin.ID,
		UUID:     admin.UUID.String(),
		Username: admin.Username,
		IsActive: admin.IsActive,
	}
	if admin.LastLoginAt != nil {
		out.LastLoginAt = utils.ToPtr(admin.LastLoginAt.Format(time.RFC3339))
	}
	return out
}

// ToAdminSessionDTO wraps issued tokens in the session DTO
func ToAdminSessionDTO(accessToken, refreshToken string) dto.AdminSessionDTO {
	return dto.AdminSessionDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(utils.AccessTokenTTL.Seconds()),
	}
}
