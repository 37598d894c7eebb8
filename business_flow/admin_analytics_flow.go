package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/xuri/excelize/v2"
)

// AdminAnalyticsFlow provides the dashboard export: a workbook with one row
// per link joining the raw counter with the aggregate figures. An optional
// inclusive creation-time range restricts which links are exported.
type AdminAnalyticsFlow interface {
	ExportLinksExcel(ctx context.Context, from, to *time.Time) (string, []byte, error)
}

type AdminAnalyticsFlowImpl struct {
	linkRepo repository.LinkRepository
	aggRepo  repository.LinkAggregateRepository
}

func NewAdminAnalyticsFlow(linkRepo repository.LinkRepository, aggRepo repository.LinkAggregateRepository) AdminAnalyticsFlow {
	return &AdminAnalyticsFlowImpl{linkRepo: linkRepo, aggRepo: aggRepo}
}

func (f *AdminAnalyticsFlowImpl) ExportLinksExcel(ctx context.Context, from, to *time.Time) (string, []byte, error) {
	if from != nil && to != nil && from.After(*to) {
		return "", nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid date range", ErrStartDateAfterEndDate)
	}

	filter := models.LinkFilter{
		CreatedAfter:  utils.TimeToUTCPtr(from),
		CreatedBefore: utils.TimeToUTCPtr(to),
	}
	links, err := f.linkRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to list links for export", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "links"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"uuid", "code", "target_url", "created_by", "is_active", "clicks", "total_clicks", "unique_visitors", "last_click_at", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, link := range links {
		agg, err := f.aggRepo.ByLinkID(ctx, link.ID)
		if err != nil {
			return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to load link aggregate", err)
		}

		createdBy := ""
		if link.CreatedBy != nil {
			createdBy = *link.CreatedBy
		}
		totalClicks := ""
		uniqueVisitors := ""
		lastClickAt := ""
		if agg != nil {
			totalClicks = strconv.FormatUint(agg.TotalClicks, 10)
			uniqueVisitors = strconv.FormatUint(agg.UniqueVisitors, 10)
			if agg.LastClickAt != nil {
				lastClickAt = agg.LastClickAt.UTC().Format(time.RFC3339)
			}
		}

		record := []string{
			link.UUID.String(),
			link.Code,
			link.TargetURL,
			createdBy,
			strconv.FormatBool(utils.IsTrue(link.IsActive)),
			strconv.FormatUint(link.Clicks, 10),
			totalClicks,
			uniqueVisitors,
			lastClickAt,
			link.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}

	filename := fmt.Sprintf("links_analytics_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}
