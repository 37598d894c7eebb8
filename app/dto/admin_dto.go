package dto

// AdminCaptchaInitResponse returns a rotate captcha challenge for admin login
type AdminCaptchaInitResponse struct {
	ChallengeID       string `json:"challenge_id"`
	MasterImageBase64 string `json:"master_image_base64"`
	ThumbImageBase64  string `json:"thumb_image_base64"`
}

// AdminCaptchaVerifyRequest carries admin credentials plus the captcha solution
type AdminCaptchaVerifyRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=255"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	ChallengeID string  `json:"challenge_id" validate:"required"`
	UserAngle   float64 `json:"user_angle" validate:"gte=0,lte=360"`
}

// AdminDTO is the public representation of an admin account
type AdminDTO struct {
	ID          uint    `json:"id"`
	UUID        string  `json:"uuid"`
	Username    string  `json:"username"`
	IsActive    *bool   `json:"is_active"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
}

// AdminSessionDTO carries issued admin tokens
type AdminSessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AdminLoginResponse is the admin login payload
type AdminLoginResponse struct {
	Admin   AdminDTO        `json:"admin"`
	Session AdminSessionDTO `json:"session"`
}
