package database

import (
	"path/filepath"
	"testing"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "seed.db")}, false)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"}, false)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)

	for _, m := range Models {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestSeedLoadsCatalog(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Seed(db))

	assert.Equal(t, int64(3), count(t, db, &model.User{}))
	assert.Equal(t, int64(4), count(t, db, &model.Course{}))
	assert.Equal(t, int64(3), count(t, db, &model.Module{}))
	assert.Equal(t, int64(6), count(t, db, &model.Lesson{}))
	assert.Equal(t, int64(2), count(t, db, &model.Assessment{}))
	assert.Equal(t, int64(2), count(t, db, &model.Question{}))
	assert.Equal(t, int64(2), count(t, db, &model.GeneratedQuestion{}))
	assert.Equal(t, int64(3), count(t, db, &model.AttemptRecord{}))
	assert.Equal(t, int64(3), count(t, db, &model.LessonCompletion{}))
	assert.Equal(t, int64(3), count(t, db, &model.Enrollment{}))

	var admin model.User
	require.NoError(t, db.First(&admin, "id = ?", "user-3").Error)
	assert.Equal(t, model.Admin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(SeedPassword)))
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	assert.Equal(t, int64(3), count(t, db, &model.User{}))
	assert.Equal(t, int64(4), count(t, db, &model.Course{}))
	assert.Equal(t, int64(3), count(t, db, &model.AttemptRecord{}))
}
