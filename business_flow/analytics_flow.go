package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/amirphl/Kusanagi/app/dto"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AnalyticsFlow is the click-analytics engine. RecordVisit is best-effort
// and never returns an error to its caller; the read-side queries are
// ordinary synchronous operations.
type AnalyticsFlow interface {
	// RecordVisit anonymizes the visit context, appends a visit event, and
	// updates the link aggregate. All failures are logged and swallowed.
	RecordVisit(ctx context.Context, linkID uint, visit VisitContext)
	// LinkAnalytics computes per-link analytics from the live event set,
	// optionally restricted to an inclusive [from, to] range. It returns
	// (nil, nil) when the link does not exist.
	LinkAnalytics(ctx context.Context, linkUUID uuid.UUID, from, to *time.Time) (*dto.LinkAnalyticsDTO, error)
	SystemAnalytics(ctx context.Context, from, to *time.Time) (*dto.SystemAnalyticsDTO, error)
	PopularLinks(ctx context.Context, limit int) ([]dto.PopularLinkDTO, error)
}

type AnalyticsFlowImpl struct {
	linkRepo  repository.LinkRepository
	eventRepo repository.VisitEventRepository
	aggRepo   repository.LinkAggregateRepository
	rc        *redis.Client
	cacheCfg  *config.CacheConfig
}

func NewAnalyticsFlow(
	linkRepo repository.LinkRepository,
	eventRepo repository.VisitEventRepository,
	aggRepo repository.LinkAggregateRepository,
	rc *redis.Client,
	cacheCfg *config.CacheConfig,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		linkRepo:  linkRepo,
		eventRepo: eventRepo,
		aggRepo:   aggRepo,
		rc:        rc,
		cacheCfg:  cacheCfg,
	}
}

func (f *AnalyticsFlowImpl) RecordVisit(ctx context.Context, linkID uint, visit VisitContext) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("recordVisit panic for link %d: %v", linkID, r)
		}
	}()

	// Re-resolve the link at record time: it may have been deleted between
	// the redirect and this detached call. Unknown links are a silent no-op.
	link, err := f.linkRepo.ByID(ctx, linkID)
	if err != nil {
		log.Printf("recordVisit: link lookup failed for %d: %v", linkID, err)
		return
	}
	if link == nil {
		return
	}

	anon := Anonymize(visit.Address, visit.UserAgent, visit.Referrer)
	now := utils.UTCNow()

	event := &models.VisitEvent{
		LinkID:        link.ID,
		MaskedAddress: anon.MaskedAddress,
		Browser:       models.NormalizeBrowser(anon.Browser),
		OS:            models.NormalizeOS(anon.OS),
		ReferrerHost:  anon.ReferrerHost,
		OccurredAt:    now,
	}
	if err := f.eventRepo.Save(ctx, event); err != nil {
		log.Printf("recordVisit: event append failed for link %d: %v", link.ID, err)
		return
	}

	if err := f.linkRepo.IncrementClicks(ctx, link.ID); err != nil {
		log.Printf("recordVisit: raw counter increment failed for link %d: %v", link.ID, err)
	}

	if err := f.updateAggregate(ctx, link.ID, anon, now); err != nil {
		log.Printf("recordVisit: aggregate update failed for link %d: %v", link.ID, err)
	}
}

// updateAggregate performs the read-modify-write of the link aggregate with
// exactly one retry on a version conflict.
func (f *AnalyticsFlowImpl) updateAggregate(ctx context.Context, linkID uint, anon Anonymized, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		agg, err := f.aggRepo.ByLinkID(ctx, linkID)
		if err != nil {
			return err
		}
		if agg == nil {
			// Aggregates are created with the link; recover from a missing
			// row rather than dropping the event's contribution.
			agg = &models.LinkAggregate{LinkID: linkID}
			if err := f.aggRepo.Save(ctx, agg); err != nil {
				return err
			}
		}

		distinct, err := f.eventRepo.DistinctMaskedAddresses(ctx, models.VisitEventFilter{LinkID: &linkID})
		if err != nil {
			return err
		}

		expected := agg.Version
		agg.TotalClicks++
		agg.UniqueVisitors = uint64(distinct)
		agg.LastClickAt = utils.ToPtr(now)

		if err := bumpReferrer(agg, anon.ReferrerHost); err != nil {
			return err
		}
		if err := bumpDay(agg, utils.StartOfDayUTC(now)); err != nil {
			return err
		}

		err = f.aggRepo.UpdateVersioned(ctx, agg, expected)
		if err == nil {
			return nil
		}
		if err != repository.ErrVersionConflict {
			return err
		}
		lastErr = NewBusinessError("AGGREGATE_CONFLICT", "Aggregate update conflicted twice", ErrAggregateConflict)
	}
	return lastErr
}

// bumpReferrer increments or inserts the referrer host entry and keeps the
// list sorted by count descending, capped, with stable order on ties.
func bumpReferrer(agg *models.LinkAggregate, host string) error {
	list, err := agg.ReferrerList()
	if err != nil {
		return err
	}
	found := false
	for i := range list {
		if list[i].Host == host {
			list[i].Count++
			found = true
			break
		}
	}
	if !found {
		list = append(list, models.ReferrerCount{Host: host, Count: 1})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Count > list[j].Count })
	if len(list) > utils.TopReferrersCap {
		list = list[:utils.TopReferrersCap]
	}
	return agg.SetReferrerList(list)
}

// bumpDay increments or inserts the day bucket and keeps the most recent
// days first, capped at the configured history length.
func bumpDay(agg *models.LinkAggregate, day time.Time) error {
	list, err := agg.DayList()
	if err != nil {
		return err
	}
	found := false
	for i := range list {
		if list[i].Day.Equal(day) {
			list[i].Count++
			found = true
			break
		}
	}
	if !found {
		list = append(list, models.DayCount{Day: day, Count: 1})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Day.After(list[j].Day) })
	if len(list) > utils.DailyClicksCap {
		list = list[:utils.DailyClicksCap]
	}
	return agg.SetDayList(list)
}

func (f *AnalyticsFlowImpl) LinkAnalytics(ctx context.Context, linkUUID uuid.UUID, from, to *time.Time) (*dto.LinkAnalyticsDTO, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid date range", ErrStartDateAfterEndDate)
	}

	link, err := f.linkRepo.ByUUID(ctx, linkUUID)
	if err != nil {
		return nil, NewBusinessError("LINK_LOOKUP_FAILED", "Failed to lookup link", err)
	}
	if link == nil {
		return nil, nil
	}

	filter := models.VisitEventFilter{
		LinkID: &link.ID,
		From:   utils.TimeToUTCPtr(from),
		To:     utils.TimeToUTCPtr(to),
	}
	// Insertion order drives the stable tie-break of the grouped counts
	events, err := f.eventRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to query visit events", err)
	}

	out := &dto.LinkAnalyticsDTO{
		UUID:         link.UUID.String(),
		Code:         link.Code,
		TopReferrers: []dto.LabelCountDTO{},
		TopBrowsers:  []dto.LabelCountDTO{},
		TopOS:        []dto.LabelCountDTO{},
		ClickHistory: []dto.DayCountDTO{},
	}

	visitors := make(map[string]struct{}, len(events))
	var lastClick time.Time
	referrers := newGroupedCounter()
	browsers := newGroupedCounter()
	oses := newGroupedCounter()
	days := map[time.Time]uint64{}

	for _, ev := range events {
		visitors[ev.MaskedAddress] = struct{}{}
		if ev.OccurredAt.After(lastClick) {
			lastClick = ev.OccurredAt
		}
		referrers.add(ev.ReferrerHost)
		browsers.add(ev.Browser)
		oses.add(ev.OS)
		days[utils.StartOfDayUTC(ev.OccurredAt)]++
	}

	out.TotalClicks = uint64(len(events))
	out.UniqueVisitors = uint64(len(visitors))
	out.TopReferrers = referrers.top(utils.TopReferrersCap)
	out.TopBrowsers = browsers.top(utils.TopAgentsCap)
	out.TopOS = oses.top(utils.TopAgentsCap)
	out.ClickHistory = dayHistory(days, utils.DailyClicksCap)
	if len(events) > 0 {
		out.LastClickAt = utils.ToPtr(lastClick.Format(time.RFC3339))
	}

	return out, nil
}

func (f *AnalyticsFlowImpl) SystemAnalytics(ctx context.Context, from, to *time.Time) (*dto.SystemAnalyticsDTO, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid date range", ErrStartDateAfterEndDate)
	}

	totalLinks, err := f.linkRepo.Count(ctx, models.LinkFilter{})
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to count links", err)
	}

	filter := models.VisitEventFilter{
		From: utils.TimeToUTCPtr(from),
		To:   utils.TimeToUTCPtr(to),
	}
	totalClicks, err := f.eventRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to count visit events", err)
	}
	distinct, err := f.eventRepo.DistinctMaskedAddresses(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to count distinct visitors", err)
	}

	popular, err := f.PopularLinks(ctx, utils.DefaultPopularLimit)
	if err != nil {
		return nil, err
	}

	return &dto.SystemAnalyticsDTO{
		TotalLinks:     totalLinks,
		TotalClicks:    totalClicks,
		UniqueVisitors: distinct,
		PopularLinks:   popular,
	}, nil
}

func (f *AnalyticsFlowImpl) PopularLinks(ctx context.Context, limit int) ([]dto.PopularLinkDTO, error) {
	if limit <= 0 {
		limit = utils.DefaultPopularLimit
	}
	if limit > utils.MaxPopularLimit {
		limit = utils.MaxPopularLimit
	}

	if cached, ok := f.popularFromCache(ctx, limit); ok {
		return cached, nil
	}

	// The ranking query already excludes inactive links
	aggs, err := f.aggRepo.TopByTotalClicks(ctx, limit)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to rank links", err)
	}

	ids := make([]uint, 0, len(aggs))
	for _, a := range aggs {
		ids = append(ids, a.LinkID)
	}
	links, err := f.linkRepo.ListActiveByIDs(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("ANALYTICS_QUERY_FAILED", "Failed to load popular links", err)
	}
	byID := make(map[uint]*models.Link, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}

	out := make([]dto.PopularLinkDTO, 0, limit)
	for _, a := range aggs {
		link, ok := byID[a.LinkID]
		if !ok {
			continue
		}
		out = append(out, dto.PopularLinkDTO{
			UUID:           link.UUID.String(),
			Code:           link.Code,
			TargetURL:      link.TargetURL,
			Clicks:         link.Clicks,
			TotalClicks:    a.TotalClicks,
			UniqueVisitors: a.UniqueVisitors,
			CreatedAt:      link.CreatedAt.Format(time.RFC3339),
		})
		if len(out) == limit {
			break
		}
	}

	f.popularToCache(ctx, limit, out)
	return out, nil
}

func (f *AnalyticsFlowImpl) popularCacheKey(limit int) string {
	prefix := "kusanagi"
	if f.cacheCfg != nil && f.cacheCfg.KeyPrefix != "" {
		prefix = f.cacheCfg.KeyPrefix
	}
	return fmt.Sprintf("%s:popular:%d", prefix, limit)
}

func (f *AnalyticsFlowImpl) popularFromCache(ctx context.Context, limit int) ([]dto.PopularLinkDTO, bool) {
	if f.rc == nil || f.cacheCfg == nil || !f.cacheCfg.Enabled {
		return nil, false
	}
	bs, err := f.rc.Get(ctx, f.popularCacheKey(limit)).Bytes()
	if err != nil || len(bs) == 0 {
		return nil, false
	}
	var out []dto.PopularLinkDTO
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (f *AnalyticsFlowImpl) popularToCache(ctx context.Context, limit int, rows []dto.PopularLinkDTO) {
	if f.rc == nil || f.cacheCfg == nil || !f.cacheCfg.Enabled {
		return
	}
	bs, err := json.Marshal(rows)
	if err != nil {
		return
	}
	ttl := f.cacheCfg.PopularTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	_ = f.rc.Set(ctx, f.popularCacheKey(limit), bs, ttl).Err()
}

// groupedCounter counts labels while remembering first-seen order so that
// equal counts keep their discovery order after the stable sort.
type groupedCounter struct {
	counts map[string]uint64
	order  []string
}

func newGroupedCounter() *groupedCounter {
	return &groupedCounter{counts: map[string]uint64{}}
}

func (g *groupedCounter) add(label string) {
	if _, ok := g.counts[label]; !ok {
		g.order = append(g.order, label)
	}
	g.counts[label]++
}

func (g *groupedCounter) top(limit int) []dto.LabelCountDTO {
	out := make([]dto.LabelCountDTO, 0, len(g.order))
	for _, label := range g.order {
		out = append(out, dto.LabelCountDTO{Label: label, Count: g.counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dayHistory(days map[time.Time]uint64, limit int) []dto.DayCountDTO {
	keys := make([]time.Time, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].After(keys[j]) })
	if len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]dto.DayCountDTO, 0, len(keys))
	for _, d := range keys {
		out = append(out, dto.DayCountDTO{Day: d.Format("2006-01-02"), Count: days[d]})
	}
	return out
}
