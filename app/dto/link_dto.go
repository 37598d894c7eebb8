package dto

// CreateLinkRequest defines input for creating a short link
type CreateLinkRequest struct {
	TargetURL string  `json:"target_url" validate:"required,url,max=2048"`
	CreatedBy *string `json:"created_by,omitempty" validate:"omitempty,max=128"`
}

// LinkDTO is the public representation of a short link
type LinkDTO struct {
	UUID      string  `json:"uuid"`
	Code      string  `json:"code"`
	ShortURL  string  `json:"short_url"`
	TargetURL string  `json:"target_url"`
	Clicks    uint64  `json:"clicks"`
	IsActive  bool    `json:"is_active"`
	CreatedBy *string `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ListLinksRequest defines paging input for listing links
type ListLinksRequest struct {
	CreatedBy *string `json:"created_by,omitempty" validate:"omitempty,max=128"`
	Page      int     `json:"page" validate:"omitempty,gte=1"`
	PageSize  int     `json:"page_size" validate:"omitempty,gte=1,lte=100"`
}
