package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LearnShelfLab/analytics_svc/internal/model"
	"github.com/LearnShelfLab/analytics_svc/internal/storage"
	"github.com/LearnShelfLab/analytics_svc/internal/testutil"
)

func seedPageView(t *testing.T, database *gorm.DB, page string, ip string, platform string, createdAt time.Time) {
	t.Helper()
	record, err := model.NewPageView(model.PageViewInput{
		Page:      page,
		IPAddress: ip,
		Platform:  platform,
		Occurred:  createdAt,
	})
	require.NoError(t, err)
	require.NoError(t, database.Create(&record).Error)
}

func TestOpenDatabaseValidatesConfiguration(t *testing.T) {
	_, err := storage.OpenDatabase(storage.Config{})
	require.ErrorIs(t, err, storage.ErrMissingDatabaseDriverName)

	_, err = storage.OpenDatabase(storage.Config{DriverName: "oracle", DataSourceName: "dsn"})
	require.ErrorIs(t, err, storage.ErrUnsupportedDatabaseDriver)

	_, err = storage.OpenDatabase(storage.Config{DriverName: storage.DriverNameSQLite})
	require.ErrorIs(t, err, storage.ErrMissingDataSourceName)
}

func TestPageViewStoreCountsWithinInclusiveRange(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	store := storage.NewDatabasePageViewStore(database)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPageView(t, database, "/", "1.1.1.1", model.PlatformWeb, base.Add(-2*time.Hour))
	seedPageView(t, database, "/", "2.2.2.2", model.PlatformWeb, base.Add(-1*time.Hour))
	seedPageView(t, database, "/", "3.3.3.3", model.PlatformWeb, base.Add(time.Hour))

	count, err := store.Count(context.Background(), storage.PageViewFilter{
		Start: base.Add(-2 * time.Hour),
		End:   base,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestPageViewStoreCountDistinctIPsIgnoresEmpty(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	store := storage.NewDatabasePageViewStore(database)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPageView(t, database, "/", "1.1.1.1", model.PlatformWeb, base)
	seedPageView(t, database, "/", "1.1.1.1", model.PlatformWeb, base)
	seedPageView(t, database, "/", "2.2.2.2", model.PlatformWeb, base)
	seedPageView(t, database, "/", "", model.PlatformWeb, base)

	distinct, err := store.CountDistinctIPs(context.Background(), storage.PageViewFilter{
		Start: base.Add(-time.Hour),
		End:   base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), distinct)
}

func TestPageViewStoreGroupCountByPageOrdersAndLimits(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	store := storage.NewDatabasePageViewStore(database)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for view := 0; view < 3; view++ {
		seedPageView(t, database, "/standard/abc", "1.1.1.1", model.PlatformWeb, base)
	}
	seedPageView(t, database, "/", "1.1.1.1", model.PlatformWeb, base)
	seedPageView(t, database, "/subject/s1", "1.1.1.1", model.PlatformWeb, base)

	counts, err := store.GroupCountByPage(context.Background(), storage.PageViewFilter{
		Start: base.Add(-time.Hour),
		End:   base.Add(time.Hour),
	}, 2)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.Equal(t, "/standard/abc", counts[0].Page)
	require.Equal(t, int64(3), counts[0].Views)
}

func TestPageViewStoreFiltersByPageAndPlatform(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	store := storage.NewDatabasePageViewStore(database)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPageView(t, database, "/chapter/c1", "1.1.1.1", model.PlatformWeb, base)
	seedPageView(t, database, "/chapter/c1", "2.2.2.2", model.PlatformApp, base)
	seedPageView(t, database, "/chapter/c2", "1.1.1.1", model.PlatformWeb, base)

	window := storage.PageViewFilter{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}

	pageFilter := window
	pageFilter.Page = "/chapter/c1"
	count, err := store.Count(context.Background(), pageFilter)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	platformFilter := pageFilter
	platformFilter.Platform = model.PlatformApp
	count, err = store.Count(context.Background(), platformFilter)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestPageViewStoreListFieldsReturnsProjection(t *testing.T) {
	database := testutil.OpenSQLiteTestDatabase(t)
	store := storage.NewDatabasePageViewStore(database)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seedPageView(t, database, "/", "1.1.1.1", model.PlatformApp, base)

	fields, err := store.ListFields(context.Background(), storage.PageViewFilter{
		Start: base.Add(-time.Hour),
		End:   base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "1.1.1.1", fields[0].IPAddress)
	require.Equal(t, model.PlatformApp, fields[0].Platform)
	require.Equal(t, base.Unix(), fields[0].CreatedAt.Unix())
}
