package businessflow

import (
	"context"
	"crypto/rand"
	"log"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkFlow provides the short link lifecycle: creation with a unique code,
// code resolution for the redirect path, activation toggling, listing and
// deletion. Visit hands the click off to the analytics engine without
// blocking the redirect.
type LinkFlow interface {
	Create(ctx context.Context, req *dto.CreateLinkRequest, metadata *ClientMetadata) (*dto.LinkDTO, error)
	Visit(ctx context.Context, code string, visit VisitContext) (string, error)
	Get(ctx context.Context, linkUUID uuid.UUID) (*dto.LinkDTO, error)
	List(ctx context.Context, req *dto.ListLinksRequest) ([]dto.LinkDTO, int64, error)
	SetActive(ctx context.Context, linkUUID uuid.UUID, active bool) (*dto.LinkDTO, error)
	Delete(ctx context.Context, linkUUID uuid.UUID) error
}

type LinkFlowImpl struct {
	linkRepo  repository.LinkRepository
	eventRepo repository.VisitEventRepository
	aggRepo   repository.LinkAggregateRepository
	analytics AnalyticsFlow
	db        *gorm.DB
	baseURL   string
}

func NewLinkFlow(
	linkRepo repository.LinkRepository,
	eventRepo repository.VisitEventRepository,
	aggRepo repository.LinkAggregateRepository,
	analytics AnalyticsFlow,
	db *gorm.DB,
	baseURL string,
) LinkFlow {
	return &LinkFlowImpl{
		linkRepo:  linkRepo,
		eventRepo: eventRepo,
		aggRepo:   aggRepo,
		analytics: analytics,
		db:        db,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func (f *LinkFlowImpl) Create(ctx context.Context, req *dto.CreateLinkRequest, metadata *ClientMetadata) (*dto.LinkDTO, error) {
	target := strings.TrimSpace(req.TargetURL)
	if target == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Target URL is required", ErrTargetURLRequired)
	}
	if err := validateTargetURL(target); err != nil {
		return nil, err
	}

	var link *models.Link

	// Single-process guard around generate-check-insert so two concurrent
	// creations cannot race the same fresh code past the uniqueness check.
	lockLinkGen()
	defer unlockLinkGen()

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		code, err := f.freshCode(txCtx)
		if err != nil {
			return err
		}

		link = &models.Link{
			UUID:      uuid.New(),
			Code:      code,
			TargetURL: target,
			IsActive:  utils.ToPtr(true),
			CreatedBy: req.CreatedBy,
		}
		if err := f.linkRepo.Save(txCtx, link); err != nil {
			return NewBusinessError("LINK_CREATE_FAILED", "Failed to create link", err)
		}

		// The aggregate row is born zeroed alongside the link
		agg := &models.LinkAggregate{LinkID: link.ID}
		if err := f.aggRepo.Save(txCtx, agg); err != nil {
			return NewBusinessError("LINK_CREATE_FAILED", "Failed to create link aggregate", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return utils.ToPtr(ToLinkDTO(*link, f.baseURL)), nil
}

// freshCode draws random codes until one is unused, bounded by a small
// retry budget.
func (f *LinkFlowImpl) freshCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < utils.ShortCodeMaxRetries; attempt++ {
		code, err := randomCode(utils.ShortCodeLength)
		if err != nil {
			return "", NewBusinessError("CODE_GENERATION_FAILED", "Failed to generate short code", err)
		}
		existing, err := f.linkRepo.ByCode(ctx, code)
		if err != nil {
			return "", NewBusinessError("CODE_GENERATION_FAILED", "Failed to check short code uniqueness", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", NewBusinessError("CODE_GENERATION_FAILED", "Exhausted short code attempts", ErrCodeGenerationFailed)
}

func randomCode(length int) (string, error) {
	alphabet := utils.ShortCodeAlphabet
	alphaLen := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, alphaLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

func validateTargetURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return NewBusinessError("VALIDATION_ERROR", "Target URL is not a valid URL", ErrTargetURLInvalid)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewBusinessError("VALIDATION_ERROR", "Target URL must be an absolute http(s) URL", ErrTargetURLInvalid)
	}
	return nil
}

func (f *LinkFlowImpl) Visit(ctx context.Context, code string, visit VisitContext) (string, error) {
	link, err := f.linkRepo.ByCode(ctx, code)
	if err != nil {
		return "", NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return "", ErrLinkNotFound
	}
	if !utils.IsTrue(link.IsActive) {
		return "", ErrLinkInactive
	}

	// Recording happens off the request path; the redirect never waits on it.
	go func(linkID uint, visit VisitContext) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("visit recording panic for link %d: %v", linkID, r)
			}
		}()
		recordCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		f.analytics.RecordVisit(recordCtx, linkID, visit)
	}(link.ID, visit)

	return link.TargetURL, nil
}

func (f *LinkFlowImpl) Get(ctx context.Context, linkUUID uuid.UUID) (*dto.LinkDTO, error) {
	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return utils.ToPtr(ToLinkDTO(*link, f.baseURL)), nil
}

func (f *LinkFlowImpl) List(ctx context.Context, req *dto.ListLinksRequest) ([]dto.LinkDTO, int64, error) {
	page := req.Page
	if page <= 0 {
		return nil, 0, NewBusinessError("VALIDATION_ERROR", "Page must be positive", ErrInvalidPage)
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		return nil, 0, NewBusinessError("VALIDATION_ERROR", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	filter := models.LinkFilter{CreatedBy: req.CreatedBy}
	total, err := f.linkRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, NewBusinessError("LINK_LIST_FAILED", "Failed to count links", err)
	}

	links, err := f.linkRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, NewBusinessError("LINK_LIST_FAILED", "Failed to list links", err)
	}

	out := make([]dto.LinkDTO, 0, len(links))
	for _, link := range links {
		out = append(out, ToLinkDTO(*link, f.baseURL))
	}
	return out, total, nil
}

func (f *LinkFlowImpl) SetActive(ctx context.Context, linkUUID uuid.UUID, active bool) (*dto.LinkDTO, error) {
	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	if err := f.linkRepo.SetActive(ctx, link.ID, active); err != nil {
		return nil, NewBusinessError("LINK_UPDATE_FAILED", "Failed to update link", err)
	}
	link.IsActive = utils.ToPtr(active)
	return utils.ToPtr(ToLinkDTO(*link, f.baseURL)), nil
}

func (f *LinkFlowImpl) Delete(ctx context.Context, linkUUID uuid.UUID) error {
	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return ErrLinkNotFound
	}

	// Events and the aggregate go with the link in one transaction
	return repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.eventRepo.DeleteByLink(txCtx, link.ID); err != nil {
			return NewBusinessError("LINK_DELETE_FAILED", "Failed to delete visit events", err)
		}
		if err := f.aggRepo.DeleteByLink(txCtx, link.ID); err != nil {
			return NewBusinessError("LINK_DELETE_FAILED", "Failed to delete link aggregate", err)
		}
		if err := f.linkRepo.Delete(txCtx, link.ID); err != nil {
			return NewBusinessError("LINK_DELETE_FAILED", "Failed to delete link", err)
		}
		return nil
	})
}
