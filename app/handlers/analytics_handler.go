package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// AnalyticsHandlerInterface defines the contract for analytics handlers
type AnalyticsHandlerInterface interface {
	LinkAnalytics(c fiber.Ctx) error
	PopularLinks(c fiber.Ctx) error
	SystemAnalytics(c fiber.Ctx) error
	ExportExcel(c fiber.Ctx) error
}

// AnalyticsHandler implements AnalyticsHandlerInterface
type AnalyticsHandler struct {
	flow      businessflow.AnalyticsFlow
	adminFlow businessflow.AdminAnalyticsFlow
}

func NewAnalyticsHandler(flow businessflow.AnalyticsFlow, adminFlow businessflow.AdminAnalyticsFlow) AnalyticsHandlerInterface {
	return &AnalyticsHandler{flow: flow, adminFlow: adminFlow}
}

// ErrorResponse standard JSON error
func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// LinkAnalytics returns the per-link analytics report
// @Summary Link Analytics
// @Description Per-link analytics computed from the live event set, optionally restricted to an inclusive date range
// @Tags Analytics
// @Produce json
// @Param uuid path string true "Link UUID"
// @Param start_date query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "Range end (RFC3339 or YYYY-MM-DD, inclusive)"
// @Success 200 {object} dto.APIResponse{data=dto.LinkAnalyticsDTO} "Analytics"
// @Failure 400 {object} dto.APIResponse "Invalid range"
// @Failure 404 {object} dto.APIResponse "Link not found"
// @Router /api/v1/links/{uuid}/analytics [get]
func (h *AnalyticsHandler) LinkAnalytics(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid link UUID", "INVALID_UUID", nil)
	}

	from, to, errResp := h.parseRange(c)
	if errResp != nil {
		return errResp
	}

	report, err := h.flow.LinkAnalytics(h.createRequestContext(c, "/api/v1/links/:uuid/analytics"), id, from, to)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "start_date cannot be after end_date", "INVALID_DATE_RANGE", nil)
		}
		log.Println("Link analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute analytics", "ANALYTICS_FAILED", nil)
	}
	if report == nil {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Link not found", "LINK_NOT_FOUND", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved", report)
}

// PopularLinks returns the most clicked active links
// @Summary Popular Links
// @Tags Analytics
// @Produce json
// @Param limit query int false "Number of links (default 10, max 100)"
// @Success 200 {object} dto.APIResponse{data=[]dto.PopularLinkDTO} "Popular links"
// @Router /api/v1/links/popular [get]
func (h *AnalyticsHandler) PopularLinks(c fiber.Ctx) error {
	limit := utils.DefaultPopularLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil {
			limit = v
		}
	}

	links, err := h.flow.PopularLinks(h.createRequestContext(c, "/api/v1/links/popular"), limit)
	if err != nil {
		log.Println("Popular links failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to rank links", "ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Popular links retrieved", links)
}

// SystemAnalytics returns the dashboard-wide analytics report
// @Summary System Analytics
// @Tags Admin Analytics
// @Produce json
// @Param start_date query string false "Range start (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "Range end (RFC3339 or YYYY-MM-DD, inclusive)"
// @Success 200 {object} dto.APIResponse{data=dto.SystemAnalyticsDTO} "Analytics"
// @Failure 400 {object} dto.APIResponse "Invalid range"
// @Router /api/v1/admin/analytics [get]
func (h *AnalyticsHandler) SystemAnalytics(c fiber.Ctx) error {
	from, to, errResp := h.parseRange(c)
	if errResp != nil {
		return errResp
	}

	report, err := h.flow.SystemAnalytics(h.createRequestContext(c, "/api/v1/admin/analytics"), from, to)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "start_date cannot be after end_date", "INVALID_DATE_RANGE", nil)
		}
		log.Println("System analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute analytics", "ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved", report)
}

// ExportExcel streams the per-link analytics workbook
// @Summary Export Link Analytics (Excel)
// @Tags Admin Analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param start_date query string false "Creation range start (RFC3339 or YYYY-MM-DD)"
// @Param end_date query string false "Creation range end (RFC3339 or YYYY-MM-DD, inclusive)"
// @Success 200 {file} binary "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid range"
// @Router /api/v1/admin/analytics/export [get]
func (h *AnalyticsHandler) ExportExcel(c fiber.Ctx) error {
	from, to, errResp := h.parseRange(c)
	if errResp != nil {
		return errResp
	}

	filename, payload, err := h.adminFlow.ExportLinksExcel(h.createRequestContextWithTimeout(c, "/api/v1/admin/analytics/export", 60*time.Second), from, to)
	if err != nil {
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "start_date cannot be after end_date", "INVALID_DATE_RANGE", nil)
		}
		log.Println("Analytics export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export analytics", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	return c.Send(payload)
}

// parseRange reads the optional start_date/end_date query params. A bare
// date expands to the start respectively end of that UTC day.
func (h *AnalyticsHandler) parseRange(c fiber.Ctx) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if startStr := c.Query("start_date"); startStr != "" {
		t, ok := parseDate(startStr, false)
		if !ok {
			return nil, nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid start_date format", "INVALID_DATE", nil)
		}
		from = &t
	}
	if endStr := c.Query("end_date"); endStr != "" {
		t, ok := parseDate(endStr, true)
		if !ok {
			return nil, nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid end_date format", "INVALID_DATE", nil)
		}
		to = &t
	}
	return from, to, nil
}

func parseDate(s string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = t.UTC()
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	return time.Time{}, false
}

func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *AnalyticsHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
