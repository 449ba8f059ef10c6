package service

import (
	"path/filepath"
	"testing"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/pkg/database"
	"corp_learning_backend/pkg/mockapi"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSeededDB 每个测试独立的 sqlite 文件，已迁移并写入演示数据
func newSeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.InitDB(cfg, false)
	require.NoError(t, err)
	require.NoError(t, database.Seed(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// instantAPI 无延迟、无故障
func instantAPI() *mockapi.Client {
	return mockapi.New()
}

// failingAPI 每次请求都注入故障
func failingAPI() *mockapi.Client {
	return mockapi.New(mockapi.WithFailureRate(1))
}

func localStorage(t *testing.T) *StorageService {
	t.Helper()
	cfg := &config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}}
	return NewStorageService(cfg)
}
