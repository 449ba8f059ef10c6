package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"
	"corp_learning_backend/pkg/tracing"

	"go.uber.org/zap"
)

// GenerateRequest AI 出题的目标位置与数量
type GenerateRequest struct {
	CourseID     string `json:"courseId" form:"courseId"`
	ModuleID     string `json:"moduleId" form:"moduleId"`
	LessonID     string `json:"lessonId" form:"lessonId"`
	AssessmentID string `json:"assessmentId" form:"assessmentId"`
	Text         string `json:"text" form:"text"`
	Count        int    `json:"count" form:"count"`
}

// EditGeneratedRequest 审核前修改题目，nil 字段保持不变
type EditGeneratedRequest struct {
	Text         *string             `json:"text"`
	Type         *model.QuestionType `json:"type"`
	Options      []model.Option      `json:"options"`
	Explanation  *string             `json:"explanation"`
	AssessmentID *string             `json:"assessmentId"`
}

type ApproveRequest struct {
	AssessmentID string `json:"assessmentId"`
}

type RejectRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

type QuestionReviewService struct {
	Repo        *repository.GeneratedQuestionRepository
	Assessments *repository.AssessmentRepository
	Generator   QuestionGenerator
	Storage     *StorageService
	API         *mockapi.Client
}

func NewQuestionReviewService(repo *repository.GeneratedQuestionRepository, assessments *repository.AssessmentRepository, generator QuestionGenerator, storage *StorageService, api *mockapi.Client) *QuestionReviewService {
	return &QuestionReviewService{
		Repo:        repo,
		Assessments: assessments,
		Generator:   generator,
		Storage:     storage,
		API:         api,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// GenerateFromText 由粘贴的文本生成待审核题目
func (s *QuestionReviewService) GenerateFromText(ctx context.Context, req *GenerateRequest) ([]model.GeneratedQuestion, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", util.ErrValidation)
	}
	return s.generate(ctx, req, req.Text, model.SourceText, "pasted text", "")
}

// sourceKind 字幕文件视为讲稿，其余纯文本视为文档
func sourceKind(filename string) model.QuestionSource {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vtt", ".srt":
		return model.SourceTranscript
	}
	return model.SourceDocument
}

// GenerateFromFile 上传源文档后按其文本内容生成题目
func (s *QuestionReviewService) GenerateFromFile(ctx context.Context, req *GenerateRequest, filename string, file io.Reader) ([]model.GeneratedQuestion, error) {
	if !util.HasAllowedExtension(filename, util.AllowedDocumentExtensions) {
		return nil, fmt.Errorf("%w: unsupported source document %q", util.ErrValidation, filepath.Base(filename))
	}
	data, err := io.ReadAll(io.LimitReader(file, util.MaxSourceDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > util.MaxSourceDocumentSize {
		return nil, fmt.Errorf("%w: source document exceeds %d bytes", util.ErrValidation, util.MaxSourceDocumentSize)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: source document is not UTF-8 text", util.ErrValidation)
	}

	url, err := s.Storage.Upload(ctx, ObjectKey("sources", filename), bytes.NewReader(data), int64(len(data)), util.MimeText)
	if err != nil {
		return nil, &util.UpstreamError{Op: "upload source document", Err: err}
	}
	return s.generate(ctx, req, string(data), sourceKind(filename), filepath.Base(filename), url)
}

func (s *QuestionReviewService) generate(ctx context.Context, req *GenerateRequest, content string, source model.QuestionSource, ref, fileURL string) ([]model.GeneratedQuestion, error) {
	ctx, span := tracing.Start(ctx, "QuestionReviewService.Generate")
	defer span.End()

	drafts, err := s.Generator.GenerateQuestions(ctx, content, req.Count)
	if err != nil {
		return nil, err
	}

	out := make([]model.GeneratedQuestion, 0, len(drafts))
	for _, d := range drafts {
		g := model.GeneratedQuestion{
			Text:            strings.TrimSpace(d.Text),
			Type:            d.Type,
			Explanation:     d.Explanation,
			Status:          model.ReviewPending,
			Source:          source,
			SourceReference: ref,
			SourceFileURL:   fileURL,
			CourseID:        optional(req.CourseID),
			ModuleID:        optional(req.ModuleID),
			LessonID:        optional(req.LessonID),
			AssessmentID:    optional(req.AssessmentID),
		}
		for _, o := range d.Options {
			g.Options = append(g.Options, model.Option{ID: model.NewID(), Text: o.Text, IsCorrect: o.IsCorrect})
		}
		if err := ValidateQuestion(&model.Question{Text: g.Text, Type: g.Type, Options: g.Options}); err != nil {
			logger.Log.Warn("Discarding malformed generated question", zap.String("text", g.Text), zap.Error(err))
			continue
		}
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil, &util.UpstreamError{Op: "generate questions", Err: fmt.Errorf("no usable questions returned")}
	}

	err = s.API.Do(ctx, "POST", "/api/admin/questions/generate", func(ctx context.Context) error {
		return s.Repo.CreateBatch(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Questions generated",
		zap.String("source", string(source)),
		zap.String("reference", ref),
		zap.Int("drafts", len(drafts)),
		zap.Int("accepted", len(out)))
	return out, nil
}

// ListPending status 为空时默认只返回待审核题目
func (s *QuestionReviewService) ListPending(ctx context.Context, status model.ReviewStatus) ([]model.GeneratedQuestion, error) {
	if status == "" {
		status = model.ReviewPending
	}
	return mockapi.Fetch(ctx, s.API, "GET", "/api/admin/questions/review", func(ctx context.Context) ([]model.GeneratedQuestion, error) {
		return s.Repo.ListByStatus(ctx, status)
	})
}

func (s *QuestionReviewService) pending(ctx context.Context, id string) (*model.GeneratedQuestion, error) {
	g, err := mockapi.Fetch(ctx, s.API, "GET", "/api/admin/questions/review/"+id, func(ctx context.Context) (*model.GeneratedQuestion, error) {
		return s.Repo.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if g.Status != model.ReviewPending {
		return nil, util.ErrQuestionReviewed
	}
	return g, nil
}

func (g *EditGeneratedRequest) apply(q *model.GeneratedQuestion) {
	if g.Text != nil {
		q.Text = strings.TrimSpace(*g.Text)
	}
	if g.Type != nil {
		q.Type = *g.Type
	}
	if g.Options != nil {
		opts := make([]model.Option, len(g.Options))
		for i, o := range g.Options {
			if o.ID == "" {
				o.ID = model.NewID()
			}
			opts[i] = o
		}
		q.Options = opts
	}
	if g.Explanation != nil {
		q.Explanation = *g.Explanation
	}
	if g.AssessmentID != nil {
		q.AssessmentID = optional(*g.AssessmentID)
	}
}

func (s *QuestionReviewService) Edit(ctx context.Context, id string, req *EditGeneratedRequest) (*model.GeneratedQuestion, error) {
	g, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(g)
	if err := ValidateQuestion(&model.Question{Text: g.Text, Type: g.Type, Options: g.Options}); err != nil {
		return nil, err
	}
	err = s.API.Do(ctx, "PUT", "/api/admin/questions/review/"+id, func(ctx context.Context) error {
		return s.Repo.Update(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Approve 校验后写入目标测评题库；assessmentID 为空时使用生成时指定的测评
func (s *QuestionReviewService) Approve(ctx context.Context, id, reviewerID, assessmentID string) (*model.Question, error) {
	g, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(assessmentID)
	if target == "" && g.AssessmentID != nil {
		target = *g.AssessmentID
	}
	if target == "" {
		return nil, fmt.Errorf("%w: target assessment is required", util.ErrValidation)
	}

	var q *model.Question
	err = s.API.Do(ctx, "POST", "/api/admin/questions/review/"+id+"/approve", func(ctx context.Context) error {
		if _, err := s.Assessments.FindAssessmentByID(ctx, target); err != nil {
			return err
		}
		pos, err := s.Assessments.NextQuestionPosition(ctx, target)
		if err != nil {
			return err
		}
		q = g.ToQuestion(target, pos)
		if err := ValidateQuestion(q); err != nil {
			return err
		}
		now := time.Now()
		g.Status = model.ReviewApproved
		g.AssessmentID = &target
		g.ReviewedBy = reviewerID
		g.ReviewedAt = &now
		return s.Repo.Approve(ctx, g, q)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Generated question approved",
		zap.String("generatedId", id),
		zap.String("questionId", q.ID),
		zap.String("assessmentId", target),
		zap.String("reviewer", reviewerID))
	return q, nil
}

func (s *QuestionReviewService) Reject(ctx context.Context, id, reviewerID, feedback string) (*model.GeneratedQuestion, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: rejection feedback is required", util.ErrValidation)
	}
	g, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	g.Status = model.ReviewRejected
	g.Feedback = feedback
	g.ReviewedBy = reviewerID
	g.ReviewedAt = &now
	err = s.API.Do(ctx, "POST", "/api/admin/questions/review/"+id+"/reject", func(ctx context.Context) error {
		return s.Repo.Update(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Generated question rejected", zap.String("generatedId", id), zap.String("reviewer", reviewerID))
	return g, nil
}
