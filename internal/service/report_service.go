package service

import (
	"context"
	"math"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"

	"go.uber.org/zap"
)

// 管理端报表最多展示的作答记录数
const assessmentReportLimit = 200

type ReportService struct {
	Courses     *repository.CourseRepository
	Progress    *repository.ProgressRepository
	Assessments *repository.AssessmentRepository
	Users       *repository.UserRepository
	API         *mockapi.Client
	Cache       CatalogCache
}

func NewReportService(courses *repository.CourseRepository, progress *repository.ProgressRepository, assessments *repository.AssessmentRepository, users *repository.UserRepository, api *mockapi.Client, cache CatalogCache) *ReportService {
	if cache == nil {
		cache = noopCache{}
	}
	return &ReportService{
		Courses:     courses,
		Progress:    progress,
		Assessments: assessments,
		Users:       users,
		API:         api,
		Cache:       cache,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// CourseReports 学员完成全部课时才计为完成，其余选课学员计为进行中
func (s *ReportService) CourseReports(ctx context.Context) ([]model.CourseReport, error) {
	var reports []model.CourseReport
	err := s.API.Do(ctx, "GET", "/api/admin/reports/courses", func(ctx context.Context) error {
		courses, err := s.Courses.ListCourses(ctx)
		if err != nil {
			return err
		}
		totals, err := s.Courses.LessonCounts(ctx)
		if err != nil {
			return err
		}
		enrolled, err := s.Progress.EnrollmentCounts(ctx)
		if err != nil {
			return err
		}
		completions, err := s.Progress.CompletionCounts(ctx)
		if err != nil {
			return err
		}
		reports = buildCourseReports(courses, totals, enrolled, completions)
		return nil
	})
	return reports, err
}

func buildCourseReports(courses []model.Course, totals, enrolled map[string]int, completions map[string]map[string]int) []model.CourseReport {
	reports := make([]model.CourseReport, 0, len(courses))
	for _, c := range courses {
		total := totals[c.ID]
		completed := 0
		if total > 0 {
			for _, n := range completions[c.ID] {
				if n >= total {
					completed++
				}
			}
		}
		r := model.CourseReport{
			CourseID:  c.ID,
			Title:     c.Title,
			Enrolled:  enrolled[c.ID],
			Completed: completed,
		}
		if r.Enrolled < r.Completed {
			r.Enrolled = r.Completed
		}
		r.InProgress = r.Enrolled - r.Completed
		if r.Enrolled > 0 {
			r.CompletionRate = roundTo(float64(r.Completed)/float64(r.Enrolled)*100, 1)
		}
		reports = append(reports, r)
	}
	return reports
}

// AssessmentReports 最近的判分记录，附带学员姓名与测评标题
func (s *ReportService) AssessmentReports(ctx context.Context) ([]model.AssessmentReport, error) {
	var reports []model.AssessmentReport
	err := s.API.Do(ctx, "GET", "/api/admin/reports/assessments", func(ctx context.Context) error {
		recs, err := s.Assessments.ListAttemptRecords(ctx, assessmentReportLimit)
		if err != nil {
			return err
		}
		userIDs := make([]string, 0, len(recs))
		assessmentIDs := make([]string, 0, len(recs))
		for _, r := range recs {
			userIDs = append(userIDs, r.UserID)
			assessmentIDs = append(assessmentIDs, r.AssessmentID)
		}
		names, err := s.Users.NamesByIDs(ctx, userIDs)
		if err != nil {
			return err
		}
		titles, err := s.Assessments.TitlesByIDs(ctx, assessmentIDs)
		if err != nil {
			return err
		}

		reports = make([]model.AssessmentReport, 0, len(recs))
		for _, r := range recs {
			reports = append(reports, model.AssessmentReport{
				AttemptID:       r.ID,
				UserID:          r.UserID,
				UserName:        names[r.UserID],
				AssessmentID:    r.AssessmentID,
				AssessmentTitle: titles[r.AssessmentID],
				Score:           r.Score,
				IsPassed:        r.IsPassed,
				Date:            r.CompletedAt.Format(util.DateFormat),
			})
		}
		return nil
	})
	return reports, err
}

// Snapshot 优先读取缓存的快照
func (s *ReportService) Snapshot(ctx context.Context) (*model.ReportSnapshot, error) {
	var snap model.ReportSnapshot
	if s.Cache.Get(ctx, cacheKeyReports, &snap) {
		return &snap, nil
	}
	return s.RefreshSnapshot(ctx)
}

// RefreshSnapshot 重新计算两类报表并写入缓存
func (s *ReportService) RefreshSnapshot(ctx context.Context) (*model.ReportSnapshot, error) {
	courses, err := s.CourseReports(ctx)
	if err != nil {
		return nil, err
	}
	assessments, err := s.AssessmentReports(ctx)
	if err != nil {
		return nil, err
	}
	snap := &model.ReportSnapshot{
		Courses:     courses,
		Assessments: assessments,
		GeneratedAt: time.Now().Format(util.TimeFormat),
	}
	s.Cache.Set(ctx, cacheKeyReports, snap)
	logger.Log.Info("Report snapshot refreshed",
		zap.Int("courses", len(courses)),
		zap.Int("attempts", len(assessments)))
	return snap, nil
}
