package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/app/middleware"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// LinkHandlerInterface defines the contract for link lifecycle and redirect handlers
type LinkHandlerInterface interface {
	Create(c fiber.Ctx) error
	Redirect(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	SetActive(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// LinkHandler implements LinkHandlerInterface
type LinkHandler struct {
	flow      businessflow.LinkFlow
	validator *validator.Validate
}

func NewLinkHandler(flow businessflow.LinkFlow) LinkHandlerInterface {
	return &LinkHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// ErrorResponse standard JSON error
func (h *LinkHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *LinkHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Create registers a new short link
// @Summary Create Short Link
// @Description Create a short link for an absolute http(s) target URL
// @Tags Links
// @Accept json
// @Produce json
// @Param request body dto.CreateLinkRequest true "Link data"
// @Success 201 {object} dto.APIResponse{data=dto.LinkDTO} "Link created"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 429 {object} dto.APIResponse "Rate limit exceeded"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/links [post]
func (h *LinkHandler) Create(c fiber.Ctx) error {
	var req dto.CreateLinkRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID := c.Get("X-Request-ID"); requestID != "" {
		metadata.SetRequestID(requestID)
	}

	link, err := h.flow.Create(h.createRequestContext(c, "/api/v1/links"), &req, metadata)
	if err != nil {
		if businessflow.IsTargetURLInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Target URL must be an absolute http(s) URL", "INVALID_TARGET_URL", nil)
		}
		if businessflow.IsCodeGenerationFailed(err) {
			log.Println("Short code generation exhausted", err)
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to allocate short code", "CODE_GENERATION_FAILED", nil)
		}
		log.Println("Create link failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create link", "LINK_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Link created", link)
}

// Redirect resolves a short code and redirects to the target URL
// @Summary Visit Short Link
// @Description Resolve a short code, record the click, and redirect
// @Tags Links
// @Produce json
// @Param code path string true "Short code"
// @Success 302 {string} string "Redirect"
// @Failure 404 {object} any
// @Failure 500 {object} any
// @Router /{code} [get]
func (h *LinkHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("invalid short link")
	}

	visit := businessflow.VisitContext{
		Address:   clientAddress(c),
		UserAgent: c.Get("User-Agent"),
		Referrer:  c.Get("Referer"),
	}

	target, err := h.flow.Visit(h.createRequestContext(c, "/"+code), code, visit)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			middleware.CountRedirect("not_found")
			return c.Status(fiber.StatusNotFound).SendString("not found")
		}
		if businessflow.IsLinkInactive(err) {
			middleware.CountRedirect("inactive")
			return c.Status(fiber.StatusNotFound).SendString("not found")
		}
		log.Println("Visit short link failed", err)
		return c.Status(fiber.StatusInternalServerError).SendString("internal error")
	}

	middleware.CountRedirect("ok")
	return c.Redirect().Status(fiber.StatusFound).To(target)
}

// Get returns a single link by UUID
// @Summary Get Link
// @Tags Links
// @Produce json
// @Param uuid path string true "Link UUID"
// @Success 200 {object} dto.APIResponse{data=dto.LinkDTO} "Link"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/links/{uuid} [get]
func (h *LinkHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	link, err := h.flow.Get(h.createRequestContext(c, "/api/v1/links/:uuid"), id)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
		}
		log.Println("Get link failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get link", "LINK_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link retrieved", link)
}

// List returns a page of links
// @Summary List Links
// @Tags Links
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param created_by query string false "Filter by creator"
// @Success 200 {object} dto.APIResponse "Links"
// @Router /api/v1/links [get]
func (h *LinkHandler) List(c fiber.Ctx) error {
	req := dto.ListLinksRequest{Page: 1, PageSize: 20}
	if pageStr := c.Query("page"); pageStr != "" {
		if v, err := strconv.Atoi(pageStr); err == nil {
			req.Page = v
		}
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if v, err := strconv.Atoi(pageSizeStr); err == nil {
			req.PageSize = v
		}
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		req.CreatedBy = utils.ToPtr(createdBy)
	}

	links, total, err := h.flow.List(h.createRequestContext(c, "/api/v1/links"), &req)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid date range", "INVALID_DATE_RANGE", nil)
		}
		log.Println("List links failed", err)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to list links", "LINK_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Links retrieved", fiber.Map{
		"items":     links,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// SetActive toggles a link's active flag
// @Summary Activate or Deactivate Link
// @Tags Links
// @Accept json
// @Produce json
// @Param uuid path string true "Link UUID"
// @Param request body object{is_active=bool} true "Activation flag"
// @Success 200 {object} dto.APIResponse{data=dto.LinkDTO} "Link updated"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/admin/links/{uuid}/active [patch]
func (h *LinkHandler) SetActive(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind().JSON(&req); err != nil || req.IsActive == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "is_active is required", "INVALID_REQUEST", nil)
	}

	link, err := h.flow.SetActive(h.createRequestContext(c, "/api/v1/admin/links/:uuid/active"), id, *req.IsActive)
	if err != nil {
		if businessflow.IsLinkNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
		}
		log.Println("Set link active failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update link", "LINK_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link updated", link)
}

// Delete removes a link together with its events and aggregate
// @Summary Delete Link
// @Tags Links
// @Produce json
// @Param uuid path string true "Link UUID"
// @Success 200 {object} dto.APIResponse "Link deleted"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/admin/links/{uuid} [delete]
func (h *LinkHandler) Delete(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	if err := h.flow.Delete(h.createRequestContext(c, "/api/v1/admin/links/:uuid"), id); err != nil {
		if businessflow.IsLinkNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
		}
		log.Println("Delete link failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete link", "LINK_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link deleted", nil)
}

// clientAddress prefers the first X-Forwarded-For entry over the peer address
func clientAddress(c fiber.Ctx) string {
	if ips := c.IPs(); len(ips) > 0 {
		return ips[0]
	}
	return c.IP()
}

func (h *LinkHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 10*time.Second)
}

func (h *LinkHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
