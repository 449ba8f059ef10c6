package repository

import (
	"context"

	"corp_learning_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// Assessment related methods
func (r *AssessmentRepository) CreateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *AssessmentRepository) UpdateAssessment(ctx context.Context, a *model.Assessment) error {
	return r.DB.WithContext(ctx).Save(a).Error
}

// DeleteAssessment 同时删除题库
func (r *AssessmentRepository) DeleteAssessment(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Assessment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "assessment", id)
		}
		return tx.Where("assessment_id = ?", id).Delete(&model.Question{}).Error
	})
}

func (r *AssessmentRepository) FindAssessmentByID(ctx context.Context, id string) (*model.Assessment, error) {
	var a model.Assessment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err, "assessment", id)
	}
	return &a, nil
}

// ListAssessments courseID 为空时返回全部
func (r *AssessmentRepository) ListAssessments(ctx context.Context, courseID string) ([]model.Assessment, error) {
	var as []model.Assessment
	query := r.DB.WithContext(ctx).Model(&model.Assessment{})
	if courseID != "" {
		query = query.Where("course_id = ?", courseID)
	}
	err := query.Order("created_at asc, id asc").Find(&as).Error
	return as, err
}

// Question related methods
func (r *AssessmentRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *AssessmentRepository) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err, "question", id)
	}
	return &q, nil
}

// ListQuestions 题库按 position 排序，即未打乱时的规范顺序
func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID string) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("position asc, created_at asc").
		Find(&qs).Error
	return qs, err
}

func (r *AssessmentRepository) NextQuestionPosition(ctx context.Context, assessmentID string) (int, error) {
	var max *int
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("assessment_id = ?", assessmentID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 1, err
	}
	return *max + 1, nil
}

func (r *AssessmentRepository) UpdateQuestion(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

func (r *AssessmentRepository) DeleteQuestion(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.Question{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "question", id)
	}
	return nil
}

// Attempt record methods

// SaveAttemptRecord 以 attempt ID 为主键幂等写入
func (r *AssessmentRepository) SaveAttemptRecord(ctx context.Context, rec *model.AttemptRecord) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec).Error
}

func (r *AssessmentRepository) FindAttemptRecord(ctx context.Context, id string) (*model.AttemptRecord, error) {
	var rec model.AttemptRecord
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, translate(err, "attempt", id)
	}
	return &rec, nil
}

func (r *AssessmentRepository) ListAttemptRecordsByUser(ctx context.Context, userID string) ([]model.AttemptRecord, error) {
	var recs []model.AttemptRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at desc").
		Find(&recs).Error
	return recs, err
}

// ListAttemptRecords 最近的作答记录，limit<=0 时不限制
func (r *AssessmentRepository) ListAttemptRecords(ctx context.Context, limit int) ([]model.AttemptRecord, error) {
	var recs []model.AttemptRecord
	query := r.DB.WithContext(ctx).
		Omit("answers", "details").
		Order("completed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&recs).Error
	return recs, err
}

func (r *AssessmentRepository) TitlesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}
	var as []model.Assessment
	if err := r.DB.WithContext(ctx).Unscoped().Select("id", "title").Where("id IN ?", ids).Find(&as).Error; err != nil {
		return nil, err
	}
	for _, a := range as {
		titles[a.ID] = a.Title
	}
	return titles, nil
}
