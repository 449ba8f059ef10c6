package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReviewService(t *testing.T) *QuestionReviewService {
	t.Helper()
	db := newSeededDB(t)
	srv, _ := newChatServer(t, draftsJSON, http.StatusOK)
	return NewQuestionReviewService(
		repository.NewGeneratedQuestionRepository(db),
		repository.NewAssessmentRepository(db),
		newTestAI(srv.URL),
		localStorage(t),
		instantAPI(),
	)
}

func TestQuestionReview_GenerateFromTextDropsMalformed(t *testing.T) {
	svc := newReviewService(t)
	ctx := context.Background()

	out, err := svc.GenerateFromText(ctx, &GenerateRequest{Text: "HTTP basics", CourseID: "course-1", AssessmentID: "assessment-1", Count: 3})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, g := range out {
		assert.Equal(t, model.ReviewPending, g.Status)
		assert.Equal(t, model.SourceText, g.Source)
		require.NotNil(t, g.AssessmentID)
		assert.Equal(t, "assessment-1", *g.AssessmentID)
		assert.Nil(t, g.ModuleID)
		for _, o := range g.Options {
			assert.NotEmpty(t, o.ID)
		}
	}

	pending, err := svc.ListPending(ctx, "")
	require.NoError(t, err)
	assert.Len(t, pending, 4)

	_, err = svc.GenerateFromText(ctx, &GenerateRequest{Text: "  "})
	require.ErrorIs(t, err, util.ErrValidation)
}

func TestQuestionReview_GenerateFromFile(t *testing.T) {
	svc := newReviewService(t)
	ctx := context.Background()

	out, err := svc.GenerateFromFile(ctx, &GenerateRequest{}, "week1.vtt", strings.NewReader("WEBVTT\n\n00:00.000 --> 00:05.000\nWelcome"))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, model.SourceTranscript, out[0].Source)
	assert.Equal(t, "week1.vtt", out[0].SourceReference)
	assert.True(t, strings.HasPrefix(out[0].SourceFileURL, "/uploads/sources/"))

	_, err = svc.GenerateFromFile(ctx, &GenerateRequest{}, "slides.pptx", strings.NewReader("x"))
	require.ErrorIs(t, err, util.ErrValidation)

	_, err = svc.GenerateFromFile(ctx, &GenerateRequest{}, "notes.txt", strings.NewReader("\xff\xfe\xfd"))
	require.ErrorIs(t, err, util.ErrValidation)
}

func TestQuestionReview_ApproveAddsToAssessment(t *testing.T) {
	svc := newReviewService(t)
	ctx := context.Background()

	q, err := svc.Approve(ctx, "ai-question-1", "user-3", "")
	require.NoError(t, err)
	assert.Equal(t, "assessment-1", q.AssessmentID)
	assert.Equal(t, 3, q.Position)

	qs, err := svc.Assessments.ListQuestions(ctx, "assessment-1")
	require.NoError(t, err)
	assert.Len(t, qs, 3)

	g, err := svc.Repo.FindByID(ctx, "ai-question-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewApproved, g.Status)
	assert.Equal(t, "user-3", g.ReviewedBy)
	require.NotNil(t, g.ApprovedQuestionID)
	assert.Equal(t, q.ID, *g.ApprovedQuestionID)

	// 已审核的题目不能再次审核
	_, err = svc.Approve(ctx, "ai-question-1", "user-3", "")
	require.ErrorIs(t, err, util.ErrQuestionReviewed)
	_, err = svc.Reject(ctx, "ai-question-1", "user-3", "late")
	require.ErrorIs(t, err, util.ErrQuestionReviewed)
}

func TestQuestionReview_ApproveUnknownAssessment(t *testing.T) {
	svc := newReviewService(t)

	_, err := svc.Approve(context.Background(), "ai-question-2", "user-3", "assessment-x")
	require.ErrorIs(t, err, util.ErrNotFound)

	g, err := svc.Repo.FindByID(context.Background(), "ai-question-2")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewPending, g.Status)
}

func TestQuestionReview_Reject(t *testing.T) {
	svc := newReviewService(t)
	ctx := context.Background()

	_, err := svc.Reject(ctx, "ai-question-2", "user-3", " ")
	require.ErrorIs(t, err, util.ErrValidation)

	g, err := svc.Reject(ctx, "ai-question-2", "user-3", "Outdated API")
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, g.Status)
	assert.Equal(t, "Outdated API", g.Feedback)

	rejected, err := svc.ListPending(ctx, model.ReviewRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "ai-question-2", rejected[0].ID)
}

func TestQuestionReview_EditValidates(t *testing.T) {
	svc := newReviewService(t)
	ctx := context.Background()

	text := "Which is NOT a React feature?"
	g, err := svc.Edit(ctx, "ai-question-1", &EditGeneratedRequest{Text: &text})
	require.NoError(t, err)
	assert.Equal(t, text, g.Text)

	tf := model.TrueFalse
	_, err = svc.Edit(ctx, "ai-question-1", &EditGeneratedRequest{Type: &tf})
	require.ErrorIs(t, err, util.ErrInvalidQuestion)

	_, err = svc.Edit(ctx, "ai-question-x", &EditGeneratedRequest{Text: &text})
	require.ErrorIs(t, err, util.ErrNotFound)
}
