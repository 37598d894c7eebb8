package tests

import (
	"fmt"
	"testing"
	"time"

	businessflow "github.com/amirphl/Kusanagi/business_flow"
	"github.com/amirphl/Kusanagi/config"
	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/repository"
	testingutil "github.com/amirphl/Kusanagi/testing"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyticsFlow(testDB *testingutil.TestDB) businessflow.AnalyticsFlow {
	return businessflow.NewAnalyticsFlow(
		repository.NewLinkRepository(testDB.DB),
		repository.NewVisitEventRepository(testDB.DB),
		repository.NewLinkAggregateRepository(testDB.DB),
		nil,
		&config.CacheConfig{Enabled: false},
	)
}

func chromeOnLinux(address, referrer string) businessflow.VisitContext {
	return businessflow.VisitContext{
		Address:   address,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		Referrer:  referrer,
	}
}

func TestRecordVisit(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAnalyticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		linkRepo := repository.NewLinkRepository(testDB.DB)
		eventRepo := repository.NewVisitEventRepository(testDB.DB)
		aggRepo := repository.NewLinkAggregateRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("AppendsEventAndUpdatesAggregate", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			flow.RecordVisit(ctx, link.ID, chromeOnLinux("203.0.113.42", "https://example.org/page"))

			events, err := eventRepo.ByFilter(ctx, models.VisitEventFilter{LinkID: &link.ID}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "203.0.113.xxx", events[0].MaskedAddress)
			assert.Equal(t, models.BrowserChrome, events[0].Browser)
			assert.Equal(t, models.OSLinux, events[0].OS)
			assert.Equal(t, "example.org", events[0].ReferrerHost)

			updated, err := linkRepo.ByID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), updated.Clicks)

			agg, err := aggRepo.ByLinkID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), agg.TotalClicks)
			assert.Equal(t, uint64(1), agg.UniqueVisitors)
			assert.NotNil(t, agg.LastClickAt)
			assert.Equal(t, uint64(1), agg.Version)
		})

		t.Run("UniqueVisitorsByMaskedAddress", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			// Two distinct /24 prefixes; the repeat visit does not add a visitor
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("203.0.113.1", ""))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("203.0.113.9", ""))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("198.51.100.1", ""))

			agg, err := aggRepo.ByLinkID(ctx, link.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(3), agg.TotalClicks)
			assert.Equal(t, uint64(2), agg.UniqueVisitors)
		})

		t.Run("ReferrerRanking", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.1", "https://one.example"))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.1", "https://two.example"))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.1", "https://two.example"))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.1", ""))

			agg, err := aggRepo.ByLinkID(ctx, link.ID)
			require.NoError(t, err)

			referrers, err := agg.ReferrerList()
			require.NoError(t, err)
			require.Len(t, referrers, 3)
			assert.Equal(t, "two.example", referrers[0].Host)
			assert.Equal(t, uint64(2), referrers[0].Count)
			// one.example was seen before direct; ties keep discovery order
			assert.Equal(t, "one.example", referrers[1].Host)
			assert.Equal(t, "direct", referrers[2].Host)
		})

		t.Run("DailyClicksBucketed", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.1", ""))
			flow.RecordVisit(ctx, link.ID, chromeOnLinux("10.0.0.2", ""))

			agg, err := aggRepo.ByLinkID(ctx, link.ID)
			require.NoError(t, err)

			days, err := agg.DayList()
			require.NoError(t, err)
			require.Len(t, days, 1)
			assert.Equal(t, uint64(2), days[0].Count)
			assert.Equal(t, utils.StartOfDayUTC(utils.UTCNow()), days[0].Day.UTC())
		})

		t.Run("UnknownLinkIsNoOp", func(t *testing.T) {
			before, err := eventRepo.Count(ctx, models.VisitEventFilter{})
			require.NoError(t, err)

			flow.RecordVisit(ctx, 999999, chromeOnLinux("10.0.0.1", ""))

			after, err := eventRepo.Count(ctx, models.VisitEventFilter{})
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLinkAnalytics(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAnalyticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("UnknownLinkReturnsNil", func(t *testing.T) {
			report, err := flow.LinkAnalytics(ctx, uuid.New(), nil, nil)
			require.NoError(t, err)
			assert.Nil(t, report)
		})

		t.Run("RecomputedFromEvents", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			now := utils.UTCNow().Truncate(time.Second)
			_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", "example.org", now.Add(-time.Hour))
			require.NoError(t, err)
			_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", "example.org", now)
			require.NoError(t, err)
			_, err = fixtures.CreateTestVisitEvent(link.ID, "b.b.b.xxx", "direct", now)
			require.NoError(t, err)

			report, err := flow.LinkAnalytics(ctx, link.UUID, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, report)

			assert.Equal(t, link.Code, report.Code)
			assert.Equal(t, uint64(3), report.TotalClicks)
			assert.Equal(t, uint64(2), report.UniqueVisitors)
			require.NotEmpty(t, report.TopReferrers)
			assert.Equal(t, "example.org", report.TopReferrers[0].Label)
			assert.Equal(t, uint64(2), report.TopReferrers[0].Count)
			require.NotEmpty(t, report.TopBrowsers)
			assert.Equal(t, models.BrowserChrome, report.TopBrowsers[0].Label)
			require.NotNil(t, report.LastClickAt)
		})

		t.Run("TimeRangeFilters", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			now := utils.UTCNow().Truncate(time.Second)
			_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", "direct", now.Add(-48*time.Hour))
			require.NoError(t, err)
			_, err = fixtures.CreateTestVisitEvent(link.ID, "b.b.b.xxx", "direct", now)
			require.NoError(t, err)

			from := now.Add(-time.Hour)
			report, err := flow.LinkAnalytics(ctx, link.UUID, &from, nil)
			require.NoError(t, err)
			require.NotNil(t, report)
			assert.Equal(t, uint64(1), report.TotalClicks)
			assert.Equal(t, uint64(1), report.UniqueVisitors)
		})

		t.Run("InvertedRangeRejected", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			from := utils.UTCNow()
			to := from.Add(-time.Hour)
			_, err = flow.LinkAnalytics(ctx, link.UUID, &from, &to)
			assert.True(t, businessflow.IsStartDateAfterEndDate(err))
		})

		t.Run("TopReferrersCapped", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			now := utils.UTCNow().Truncate(time.Second)
			for i := 0; i < 15; i++ {
				host := fmt.Sprintf("ref%02d.example", i)
				_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", host, now)
				require.NoError(t, err)
			}
			// One extra visit makes ref03 the unambiguous leader
			_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", "ref03.example", now)
			require.NoError(t, err)

			report, err := flow.LinkAnalytics(ctx, link.UUID, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, report)
			require.Len(t, report.TopReferrers, utils.TopReferrersCap)
			assert.Equal(t, "ref03.example", report.TopReferrers[0].Label)
			assert.Equal(t, uint64(2), report.TopReferrers[0].Count)
		})

		t.Run("ClickHistoryCapped", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			newest := utils.StartOfDayUTC(utils.UTCNow())
			for i := 0; i < 35; i++ {
				_, err = fixtures.CreateTestVisitEvent(link.ID, "a.a.a.xxx", "direct", newest.AddDate(0, 0, -i).Add(time.Hour))
				require.NoError(t, err)
			}

			report, err := flow.LinkAnalytics(ctx, link.UUID, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, report)
			require.Len(t, report.ClickHistory, utils.DailyClicksCap)
			// Most recent days are the ones kept
			assert.Equal(t, newest.Format("2006-01-02"), report.ClickHistory[0].Day)
			assert.Equal(t, newest.AddDate(0, 0, -29).Format("2006-01-02"), report.ClickHistory[len(report.ClickHistory)-1].Day)
		})

		t.Run("NoEventsZeroReport", func(t *testing.T) {
			link, err := fixtures.CreateTestLink("")
			require.NoError(t, err)

			report, err := flow.LinkAnalytics(ctx, link.UUID, nil, nil)
			require.NoError(t, err)
			require.NotNil(t, report)
			assert.Equal(t, uint64(0), report.TotalClicks)
			assert.Empty(t, report.TopReferrers)
			assert.Nil(t, report.LastClickAt)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPopularLinks(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAnalyticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		linkRepo := repository.NewLinkRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		quiet, err := fixtures.CreateTestLink("")
		require.NoError(t, err)
		busy, err := fixtures.CreateTestLink("")
		require.NoError(t, err)
		hidden, err := fixtures.CreateTestLink("")
		require.NoError(t, err)

		flow.RecordVisit(ctx, quiet.ID, chromeOnLinux("10.0.0.1", ""))
		for i := 0; i < 3; i++ {
			flow.RecordVisit(ctx, busy.ID, chromeOnLinux("10.0.0.1", ""))
			flow.RecordVisit(ctx, hidden.ID, chromeOnLinux("10.0.0.1", ""))
		}
		require.NoError(t, linkRepo.SetActive(ctx, hidden.ID, false))

		t.Run("RankedAndActiveOnly", func(t *testing.T) {
			popular, err := flow.PopularLinks(ctx, 10)
			require.NoError(t, err)
			require.Len(t, popular, 2)
			assert.Equal(t, busy.Code, popular[0].Code)
			assert.Equal(t, uint64(3), popular[0].TotalClicks)
			assert.Equal(t, quiet.Code, popular[1].Code)
		})

		t.Run("LimitApplied", func(t *testing.T) {
			popular, err := flow.PopularLinks(ctx, 1)
			require.NoError(t, err)
			require.Len(t, popular, 1)
			assert.Equal(t, busy.Code, popular[0].Code)
		})

		t.Run("ActiveBelowInactiveLeaders", func(t *testing.T) {
			aggRepo := repository.NewLinkAggregateRepository(testDB.DB)

			seed := func(totalClicks uint64, active bool) *models.Link {
				link, err := fixtures.CreateTestLink("")
				require.NoError(t, err)
				agg, err := aggRepo.ByLinkID(ctx, link.ID)
				require.NoError(t, err)
				agg.TotalClicks = totalClicks
				require.NoError(t, aggRepo.UpdateVersioned(ctx, agg, 0))
				if !active {
					require.NoError(t, linkRepo.SetActive(ctx, link.ID, false))
				}
				return link
			}

			seed(30, false)
			seed(20, false)
			runner := seed(10, true)

			// Both higher-ranked links are inactive; the limit still yields
			// the best active link instead of an empty page.
			popular, err := flow.PopularLinks(ctx, 1)
			require.NoError(t, err)
			require.Len(t, popular, 1)
			assert.Equal(t, runner.Code, popular[0].Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSystemAnalytics(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAnalyticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		first, err := fixtures.CreateTestLink("")
		require.NoError(t, err)
		second, err := fixtures.CreateTestLink("")
		require.NoError(t, err)

		flow.RecordVisit(ctx, first.ID, chromeOnLinux("203.0.113.1", ""))
		flow.RecordVisit(ctx, second.ID, chromeOnLinux("203.0.113.1", ""))
		flow.RecordVisit(ctx, second.ID, chromeOnLinux("198.51.100.1", ""))

		report, err := flow.SystemAnalytics(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), report.TotalLinks)
		assert.Equal(t, int64(3), report.TotalClicks)
		assert.Equal(t, int64(2), report.UniqueVisitors)
		require.Len(t, report.PopularLinks, 2)
		assert.Equal(t, second.Code, report.PopularLinks[0].Code)

		return nil
	})
	require.NoError(t, err)
}
