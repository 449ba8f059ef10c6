package repository

import (
	"context"
	"time"

	"corp_learning_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 学员的课时完成记录与选课记录
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// CompletedLessons 返回学员在某课程已完成的课时集合；courseID 为空时返回全部课程
func (r *ProgressRepository) CompletedLessons(ctx context.Context, userID, courseID string) (map[string]bool, error) {
	query := r.DB.WithContext(ctx).Model(&model.LessonCompletion{}).Where("user_id = ?", userID)
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	var ids []string
	if err := query.Pluck("lesson_id", &ids).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

// MarkLessonComplete 幂等写入完成记录，并在同一事务中补齐选课记录
func (r *ProgressRepository) MarkLessonComplete(ctx context.Context, userID, courseID, moduleID, lessonID string, at time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completion := &model.LessonCompletion{
			UserID:      userID,
			LessonID:    lessonID,
			ModuleID:    moduleID,
			CourseID:    courseID,
			CompletedAt: at,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(completion).Error; err != nil {
			return err
		}
		return enroll(tx, userID, courseID, at)
	})
}

func (r *ProgressRepository) Enroll(ctx context.Context, userID, courseID string, at time.Time) error {
	return enroll(r.DB.WithContext(ctx), userID, courseID, at)
}

func enroll(tx *gorm.DB, userID, courseID string, at time.Time) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Enrollment{UserID: userID, CourseID: courseID, EnrolledAt: at}).Error
}

func (r *ProgressRepository) EnrolledCourses(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ?", userID).
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// EnrollmentCounts 每门课程的选课人数
func (r *ProgressRepository) EnrollmentCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CourseID string
		Total    int
	}
	err := r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Select("course_id, COUNT(*) AS total").
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.CourseID] = row.Total
	}
	return out, nil
}

// CompletionCounts 每门课程中每个学员已完成的课时数：courseID -> userID -> count
func (r *ProgressRepository) CompletionCounts(ctx context.Context) (map[string]map[string]int, error) {
	var rows []struct {
		CourseID string
		UserID   string
		Total    int
	}
	err := r.DB.WithContext(ctx).Model(&model.LessonCompletion{}).
		Select("course_id, user_id, COUNT(*) AS total").
		Group("course_id, user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int)
	for _, row := range rows {
		if out[row.CourseID] == nil {
			out[row.CourseID] = make(map[string]int)
		}
		out[row.CourseID][row.UserID] = row.Total
	}
	return out, nil
}
