package tests

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkAggregateReferrerList(t *testing.T) {
	agg := &models.LinkAggregate{}

	t.Run("EmptyDocument", func(t *testing.T) {
		list, err := agg.ReferrerList()
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		in := []models.ReferrerCount{
			{Host: "example.org", Count: 5},
			{Host: "direct", Count: 2},
		}
		require.NoError(t, agg.SetReferrerList(in))

		out, err := agg.ReferrerList()
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("MalformedDocument", func(t *testing.T) {
		bad := &models.LinkAggregate{TopReferrers: json.RawMessage(`{"not":"a list"}`)}
		_, err := bad.ReferrerList()
		assert.Error(t, err)
	})
}

func TestLinkAggregateDayList(t *testing.T) {
	agg := &models.LinkAggregate{}
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	in := []models.DayCount{
		{Day: day, Count: 3},
		{Day: day.AddDate(0, 0, -1), Count: 7},
	}
	require.NoError(t, agg.SetDayList(in))

	out, err := agg.DayList()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Day.Equal(day))
	assert.Equal(t, uint64(3), out[0].Count)
	assert.Equal(t, uint64(7), out[1].Count)
}

func TestNormalizeBrowser(t *testing.T) {
	assert.Equal(t, models.BrowserChrome, models.NormalizeBrowser("Chrome"))
	assert.Equal(t, models.BrowserUnknown, models.NormalizeBrowser("Netscape"))
	assert.Equal(t, models.BrowserUnknown, models.NormalizeBrowser(""))
}

func TestNormalizeOS(t *testing.T) {
	assert.Equal(t, models.OSAndroid, models.NormalizeOS("Android"))
	assert.Equal(t, models.OSUnknown, models.NormalizeOS("TempleOS"))
	assert.Equal(t, models.OSUnknown, models.NormalizeOS(""))
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "links", models.Link{}.TableName())
	assert.Equal(t, "visit_events", models.VisitEvent{}.TableName())
	assert.Equal(t, "link_aggregates", models.LinkAggregate{}.TableName())
	assert.Equal(t, "admins", models.Admin{}.TableName())
}
