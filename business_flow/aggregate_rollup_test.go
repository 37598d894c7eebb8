package businessflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/models"
	"github.com/amirphl/Kusanagi/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBumpReferrer(t *testing.T) {
	t.Run("CappedAtTen", func(t *testing.T) {
		agg := &models.LinkAggregate{}

		// Host i is bumped i+1 times, so ref14 ends up on top with 15
		for i := 0; i < 15; i++ {
			host := fmt.Sprintf("ref%02d.example", i)
			for n := 0; n <= i; n++ {
				require.NoError(t, bumpReferrer(agg, host))
			}
		}

		list, err := agg.ReferrerList()
		require.NoError(t, err)
		require.Len(t, list, utils.TopReferrersCap)

		assert.Equal(t, "ref14.example", list[0].Host)
		assert.Equal(t, uint64(15), list[0].Count)
		for i := 1; i < len(list); i++ {
			assert.LessOrEqual(t, list[i].Count, list[i-1].Count)
		}
		// The five lowest-count hosts fell off the list
		for _, entry := range list {
			assert.GreaterOrEqual(t, entry.Count, uint64(6))
		}
	})

	t.Run("TiesKeepDiscoveryOrder", func(t *testing.T) {
		agg := &models.LinkAggregate{}
		require.NoError(t, bumpReferrer(agg, "first.example"))
		require.NoError(t, bumpReferrer(agg, "second.example"))

		list, err := agg.ReferrerList()
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "first.example", list[0].Host)
		assert.Equal(t, "second.example", list[1].Host)
	})
}

func TestBumpDay(t *testing.T) {
	t.Run("CappedAtThirtyMostRecent", func(t *testing.T) {
		agg := &models.LinkAggregate{}
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		for i := 0; i < 40; i++ {
			require.NoError(t, bumpDay(agg, base.AddDate(0, 0, i)))
		}

		list, err := agg.DayList()
		require.NoError(t, err)
		require.Len(t, list, utils.DailyClicksCap)

		// Most recent day first; the ten oldest days were truncated
		assert.True(t, list[0].Day.Equal(base.AddDate(0, 0, 39)))
		assert.True(t, list[len(list)-1].Day.Equal(base.AddDate(0, 0, 10)))
		for i := 1; i < len(list); i++ {
			assert.True(t, list[i].Day.Before(list[i-1].Day))
		}
	})

	t.Run("SameDayAccumulates", func(t *testing.T) {
		agg := &models.LinkAggregate{}
		day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

		require.NoError(t, bumpDay(agg, day))
		require.NoError(t, bumpDay(agg, day))

		list, err := agg.DayList()
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, uint64(2), list[0].Count)
	})
}
