package repository

import (
	"context"

	"corp_learning_backend/internal/model"

	"gorm.io/gorm"
)

type GeneratedQuestionRepository struct {
	DB *gorm.DB
}

func NewGeneratedQuestionRepository(db *gorm.DB) *GeneratedQuestionRepository {
	return &GeneratedQuestionRepository{DB: db}
}

func (r *GeneratedQuestionRepository) CreateBatch(ctx context.Context, qs []model.GeneratedQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&qs).Error
}

func (r *GeneratedQuestionRepository) FindByID(ctx context.Context, id string) (*model.GeneratedQuestion, error) {
	var q model.GeneratedQuestion
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err, "generated question", id)
	}
	return &q, nil
}

// ListByStatus status 为空时返回全部
func (r *GeneratedQuestionRepository) ListByStatus(ctx context.Context, status model.ReviewStatus) ([]model.GeneratedQuestion, error) {
	var qs []model.GeneratedQuestion
	query := r.DB.WithContext(ctx).Model(&model.GeneratedQuestion{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at asc, id asc").Find(&qs).Error
	return qs, err
}

func (r *GeneratedQuestionRepository) Update(ctx context.Context, q *model.GeneratedQuestion) error {
	return r.DB.WithContext(ctx).Save(q).Error
}

// Approve 在同一事务中写入正式题目并更新审核状态
func (r *GeneratedQuestionRepository) Approve(ctx context.Context, g *model.GeneratedQuestion, q *model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		g.ApprovedQuestionID = &q.ID
		return tx.Save(g).Error
	})
}
