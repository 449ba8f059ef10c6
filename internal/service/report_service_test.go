package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache 进程内缓存，序列化方式与 redis 实现一致
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	return ok && json.Unmarshal(raw, dest) == nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
}

func (c *mapCache) Invalidate(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
}

func newReportService(t *testing.T, cache CatalogCache) *ReportService {
	t.Helper()
	db := newSeededDB(t)
	return NewReportService(
		repository.NewCourseRepository(db),
		repository.NewProgressRepository(db),
		repository.NewAssessmentRepository(db),
		repository.NewUserRepository(db),
		instantAPI(),
		cache,
	)
}

func reportFor(reports []model.CourseReport, id string) model.CourseReport {
	for _, r := range reports {
		if r.CourseID == id {
			return r
		}
	}
	return model.CourseReport{}
}

func TestReportService_CourseReports(t *testing.T) {
	svc := newReportService(t, nil)
	ctx := context.Background()

	reports, err := svc.CourseReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	c1 := reportFor(reports, "course-1")
	assert.Equal(t, 2, c1.Enrolled)
	assert.Equal(t, 0, c1.Completed)
	assert.Equal(t, 2, c1.InProgress)
	assert.Equal(t, 0.0, c1.CompletionRate)

	require.NoError(t, svc.Progress.MarkLessonComplete(ctx, "user-2", "course-2", "module-2-1", "lesson-2-1-1", time.Now()))

	reports, err = svc.CourseReports(ctx)
	require.NoError(t, err)
	c2 := reportFor(reports, "course-2")
	assert.Equal(t, 2, c2.Enrolled)
	assert.Equal(t, 1, c2.Completed)
	assert.Equal(t, 1, c2.InProgress)
	assert.Equal(t, 50.0, c2.CompletionRate)

	// 没有课时的课程不会有人“完成”
	assert.Equal(t, 0, reportFor(reports, "course-3").Completed)
}

func TestBuildCourseReports(t *testing.T) {
	courses := []model.Course{
		{Entity: model.Entity{ID: "a"}, Title: "A"},
		{Entity: model.Entity{ID: "b"}, Title: "B"},
	}
	totals := map[string]int{"a": 3, "b": 2}
	enrolled := map[string]int{"a": 3}
	completions := map[string]map[string]int{
		"a": {"u1": 3, "u2": 1},
		// 未选课但完成全部课时的学员同样计入
		"b": {"u1": 2},
	}

	reports := buildCourseReports(courses, totals, enrolled, completions)
	require.Len(t, reports, 2)
	assert.Equal(t, model.CourseReport{CourseID: "a", Title: "A", Enrolled: 3, Completed: 1, InProgress: 2, CompletionRate: 33.3}, reports[0])
	assert.Equal(t, model.CourseReport{CourseID: "b", Title: "B", Enrolled: 1, Completed: 1, InProgress: 0, CompletionRate: 100}, reports[1])
}

func TestReportService_AssessmentReports(t *testing.T) {
	svc := newReportService(t, nil)

	reports, err := svc.AssessmentReports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	latest := reports[0]
	assert.Equal(t, "attempt-3", latest.AttemptID)
	assert.Equal(t, "John Doe", latest.UserName)
	assert.Equal(t, "Advanced TypeScript Assessment", latest.AssessmentTitle)
	assert.Equal(t, 65, latest.Score)
	assert.False(t, latest.IsPassed)
	assert.Equal(t, "2023-04-22", latest.Date)
}

func TestReportService_SnapshotIsCached(t *testing.T) {
	cache := newMapCache()
	svc := newReportService(t, cache)
	ctx := context.Background()

	first, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Assessments, 3)

	// 缓存命中时不访问数据库
	svc.API.Configure(0, 0, 1)
	cached, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, cached.GeneratedAt)

	cache.Invalidate(ctx, cacheKeyReports)
	_, err = svc.Snapshot(ctx)
	assert.Error(t, err)
}
