package favorite

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracking-moments/core/internal/database"
	"github.com/tracking-moments/core/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedPost(t *testing.T, db *gorm.DB, ownerID, title string) *models.PostModel {
	t.Helper()
	p := &models.PostModel{
		UserID:      ownerID,
		Title:       title,
		Description: "seeded",
		PostDate:    time.Now(),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestAddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	p := seedPost(t, db, "owner", "Sunset")

	require.NoError(t, svc.Add("reader", p.ID))
	require.NoError(t, svc.Add("reader", p.ID))

	var count int64
	require.NoError(t, db.Model(&models.FavoriteModel{}).
		Where("user_id = ? AND post_id = ?", "reader", p.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddUnknownPost(t *testing.T) {
	svc := NewService(newTestDB(t))

	assert.ErrorIs(t, svc.Add("reader", "no-such-post"), ErrPostNotFound)
}

func TestRemoveAbsentFavoriteIsNoOp(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	p := seedPost(t, db, "owner", "Sunset")

	require.NoError(t, svc.Remove("reader", p.ID))
	require.NoError(t, svc.Remove("reader", "no-such-post"))
}

func TestReAddAfterRemove(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	p := seedPost(t, db, "owner", "Sunset")

	require.NoError(t, svc.Add("reader", p.ID))
	require.NoError(t, svc.Remove("reader", p.ID))
	require.NoError(t, svc.Add("reader", p.ID))

	favs, err := svc.ListByUser("reader")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, p.ID, favs[0].ID)
}

func TestListOrderedByFavoriteTime(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	first := seedPost(t, db, "owner", "First favorited")
	second := seedPost(t, db, "owner", "Second favorited")

	require.NoError(t, svc.Add("reader", first.ID))
	// Separate the created_at timestamps on the favorite rows.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.Add("reader", second.ID))

	favs, err := svc.ListByUser("reader")
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, second.ID, favs[0].ID)
	assert.Equal(t, first.ID, favs[1].ID)
}

func TestListScopedToUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	mine := seedPost(t, db, "owner", "Mine")
	theirs := seedPost(t, db, "owner", "Theirs")

	require.NoError(t, svc.Add("reader-a", mine.ID))
	require.NoError(t, svc.Add("reader-b", theirs.ID))

	favs, err := svc.ListByUser("reader-a")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, mine.ID, favs[0].ID)
}

func TestListExcludesDeletedPosts(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	kept := seedPost(t, db, "owner", "Kept")
	gone := seedPost(t, db, "owner", "Gone")

	require.NoError(t, svc.Add("reader", kept.ID))
	require.NoError(t, svc.Add("reader", gone.ID))

	require.NoError(t, db.Unscoped().
		Where("id = ?", gone.ID).Delete(&models.PostModel{}).Error)

	favs, err := svc.ListByUser("reader")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, kept.ID, favs[0].ID)
}
