package repository

import (
	"context"

	"corp_learning_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// withTree 预加载模块与课时，均按 position 排序
func withTree(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, created_at asc")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, created_at asc")
		})
}

func (r *CourseRepository) ListCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := withTree(r.DB.WithContext(ctx)).
		Order("created_at asc, id asc").
		Find(&courses).Error
	return courses, err
}

func (r *CourseRepository) FindCourseByID(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	if err := withTree(r.DB.WithContext(ctx)).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err, "course", id)
	}
	return &c, nil
}

func (r *CourseRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

// UpdateCourse 只更新课程本身的字段，不级联模块
func (r *CourseRepository) UpdateCourse(ctx context.Context, c *model.Course) error {
	return r.DB.WithContext(ctx).Omit("Modules").Save(c).Error
}

func (r *CourseRepository) DeleteCourse(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "course", id)
		}
		var moduleIDs []string
		if err := tx.Model(&model.Module{}).Where("course_id = ?", id).Pluck("id", &moduleIDs).Error; err != nil {
			return err
		}
		if len(moduleIDs) > 0 {
			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&model.Lesson{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("course_id = ?", id).Delete(&model.Module{}).Error
	})
}

// Module related methods
func (r *CourseRepository) FindModule(ctx context.Context, courseID, moduleID string) (*model.Module, error) {
	var m model.Module
	err := r.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("id = ? AND course_id = ?", moduleID, courseID).
		First(&m).Error
	if err != nil {
		return nil, translate(err, "module", moduleID)
	}
	return &m, nil
}

func (r *CourseRepository) CreateModule(ctx context.Context, m *model.Module) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *CourseRepository) UpdateModule(ctx context.Context, m *model.Module) error {
	return r.DB.WithContext(ctx).Omit("Lessons").Save(m).Error
}

func (r *CourseRepository) DeleteModule(ctx context.Context, courseID, moduleID string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND course_id = ?", moduleID, courseID).Delete(&model.Module{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "module", moduleID)
		}
		return tx.Where("module_id = ?", moduleID).Delete(&model.Lesson{}).Error
	})
}

func (r *CourseRepository) NextModulePosition(ctx context.Context, courseID string) (int, error) {
	return nextPosition(r.DB.WithContext(ctx).Model(&model.Module{}).Where("course_id = ?", courseID))
}

// Lesson related methods
func (r *CourseRepository) FindLesson(ctx context.Context, moduleID, lessonID string) (*model.Lesson, error) {
	var l model.Lesson
	if err := r.DB.WithContext(ctx).Where("id = ? AND module_id = ?", lessonID, moduleID).First(&l).Error; err != nil {
		return nil, translate(err, "lesson", lessonID)
	}
	return &l, nil
}

func (r *CourseRepository) CreateLesson(ctx context.Context, l *model.Lesson) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *CourseRepository) UpdateLesson(ctx context.Context, l *model.Lesson) error {
	return r.DB.WithContext(ctx).Save(l).Error
}

func (r *CourseRepository) DeleteLesson(ctx context.Context, moduleID, lessonID string) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND module_id = ?", lessonID, moduleID).Delete(&model.Lesson{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "lesson", lessonID)
	}
	return nil
}

func (r *CourseRepository) NextLessonPosition(ctx context.Context, moduleID string) (int, error) {
	return nextPosition(r.DB.WithContext(ctx).Model(&model.Lesson{}).Where("module_id = ?", moduleID))
}

// ReorderLessons 按给定顺序重写 position（从 1 开始）
func (r *CourseRepository) ReorderLessons(ctx context.Context, moduleID string, lessonIDs []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range lessonIDs {
			res := tx.Model(&model.Lesson{}).
				Where("id = ? AND module_id = ?", id, moduleID).
				Update("position", i+1)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return translate(gorm.ErrRecordNotFound, "lesson", id)
			}
		}
		return nil
	})
}

// LessonCounts 每门课程的课时总数
func (r *CourseRepository) LessonCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		CourseID string
		Total    int
	}
	err := r.DB.WithContext(ctx).
		Table("lessons").
		Select("modules.course_id AS course_id, COUNT(lessons.id) AS total").
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.deleted_at IS NULL").
		Where("lessons.deleted_at IS NULL").
		Group("modules.course_id").
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

func nextPosition(query *gorm.DB) (int, error) {
	var max *int
	if err := query.Select("MAX(position)").Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}
