package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/mockapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []WSMessage
}

func (p *recordingPublisher) Publish(userID string, msg WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// newAssessmentService 关闭自动倒计时，测试中手动 Tick
func newAssessmentService(t *testing.T) (*AssessmentService, *recordingPublisher) {
	t.Helper()
	db := newSeededDB(t)
	events := &recordingPublisher{}
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), instantAPI(), nil, events,
		WithTicker(time.Second, nil),
		WithEngineOptions(WithShuffler(firstShuffler{})))
	return svc, events
}

// seededCorrect assessment-1 的正确答案
var seededCorrect = map[string]string{
	"question-1": "q1-opt1",
	"question-2": "q2-opt2",
}

func TestAssessmentService_StartClampsToPool(t *testing.T) {
	svc, _ := newAssessmentService(t)

	view, err := svc.StartAssessment(context.Background(), "user-1", "assessment-1")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptInProgress, view.State)
	assert.Len(t, view.Questions, 2)
	assert.Equal(t, 30*60, view.Remaining)
	assert.Nil(t, view.Result)
	assert.Equal(t, "user-1", view.Attempt.UserID)
	assert.Equal(t, 1, svc.ActiveSessions())
}

func TestAssessmentService_StartUnknownAssessment(t *testing.T) {
	svc, _ := newAssessmentService(t)

	_, err := svc.StartAssessment(context.Background(), "user-1", "assessment-x")
	require.ErrorIs(t, err, util.ErrNotFound)
	assert.Equal(t, model.AttemptNotStarted, svc.CurrentAttempt(context.Background(), "user-1").State)
}

func TestAssessmentService_SubmitAllCorrect(t *testing.T) {
	svc, events := newAssessmentService(t)
	ctx := context.Background()

	view, err := svc.StartAssessment(ctx, "user-2", "assessment-1")
	require.NoError(t, err)
	for _, q := range view.Questions {
		_, err := svc.SubmitAnswer(ctx, "user-2", q.ID, []string{seededCorrect[q.ID]})
		require.NoError(t, err)
	}

	res, err := svc.SubmitAssessment(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, 2, res.CorrectAnswers)
	assert.True(t, res.IsPassed)
	assert.False(t, res.TimedOut)
	assert.Equal(t, model.FeedbackPassed, res.Feedback)
	assert.Contains(t, events.types(), EventFinalized)

	// 重复提交返回同一结果
	again, err := svc.SubmitAssessment(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, res.AttemptID, again.AttemptID)

	history, err := svc.AttemptHistory(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAssessmentService_PartialAnswersFail(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	_, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
	require.NoError(t, err)

	res, err := svc.SubmitAssessment(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.False(t, res.IsPassed)
	assert.Equal(t, model.FeedbackFailed, res.Feedback)
	require.Len(t, res.QuestionDetails, 2)
	for _, d := range res.QuestionDetails {
		if d.Question.ID == "question-2" {
			assert.Empty(t, d.UserAnswer)
			assert.False(t, d.IsCorrect)
		}
	}
}

func TestAssessmentService_SubmitAnswerValidation(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
	require.ErrorIs(t, err, util.ErrNoActiveAttempt)

	_, err = svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q2-opt1"})
	require.ErrorIs(t, err, util.ErrInvalidOption)

	_, err = svc.SubmitAnswer(ctx, "user-1", "question-x", []string{"q1-opt1"})
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestAssessmentService_TimeoutAutoSubmits(t *testing.T) {
	svc, events := newAssessmentService(t)
	ctx := context.Background()

	_, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)

	view, err := svc.Tick(ctx, "user-1", 60)
	require.NoError(t, err)
	assert.Equal(t, 29*60, view.Remaining)

	view, err = svc.Tick(ctx, "user-1", 30*60)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptFinalized, view.State)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.TimedOut)
	assert.Equal(t, 0, view.Result.Score)
	assert.Equal(t, []string{EventTick, EventFinalized}, events.types())

	// 超时结果已写库
	rec, err := svc.Repo.FindAttemptRecord(ctx, view.Result.AttemptID)
	require.NoError(t, err)
	assert.True(t, rec.TimedOut)

	// 判分后不能再作答
	_, err = svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
	require.ErrorIs(t, err, util.ErrNoActiveAttempt)
}

func TestAssessmentService_UpstreamFailureKeepsAttempt(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	_, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)

	svc.API.Configure(0, 0, 1)
	_, err = svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
	require.ErrorIs(t, err, util.ErrUpstream)
	_, err = svc.SubmitAssessment(ctx, "user-1")
	require.ErrorIs(t, err, util.ErrUpstream)

	cur := svc.CurrentAttempt(ctx, "user-1")
	assert.Equal(t, model.AttemptInProgress, cur.State)
	assert.Empty(t, cur.Attempt.Answers)

	svc.API.Configure(0, 0, 0)
	res, err := svc.SubmitAssessment(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.CorrectAnswers)
}

func TestAssessmentService_RestartAbandonsPrevious(t *testing.T) {
	svc, events := newAssessmentService(t)
	ctx := context.Background()

	first, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)
	second, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Attempt.ID, second.Attempt.ID)
	assert.Equal(t, []string{EventAbandoned}, events.types())

	_, err = svc.FetchResults(ctx, "user-1", first.Attempt.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestAssessmentService_ClearAttempt(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	_, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)
	svc.ClearAttempt(ctx, "user-1")

	assert.Equal(t, model.AttemptNotStarted, svc.CurrentAttempt(ctx, "user-1").State)
	_, err = svc.SubmitAssessment(ctx, "user-1")
	require.ErrorIs(t, err, util.ErrNoActiveAttempt)

	// 不在作答中的会话会被清理
	assert.Equal(t, 1, svc.SweepIdleSessions(-time.Second))
	assert.Equal(t, 0, svc.ActiveSessions())
}

func TestAssessmentService_FetchResults(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	res, err := svc.FetchResults(ctx, "user-1", "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, 80, res.Score)
	assert.True(t, res.IsPassed)

	_, err = svc.FetchResults(ctx, "user-2", "attempt-1")
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestAssessmentService_AdminQuestions(t *testing.T) {
	svc, _ := newAssessmentService(t)
	ctx := context.Background()

	a, err := svc.CreateAssessment(ctx, &AssessmentRequest{Title: "Go Quiz", TimeLimit: 10, PassingScore: 60, TotalQuestions: 5})
	require.NoError(t, err)

	_, err = svc.CreateQuestion(ctx, a.ID, &QuestionRequest{
		Text: "Two answers",
		Type: model.SingleChoice,
		Options: []model.Option{
			{Text: "a", IsCorrect: true},
			{Text: "b", IsCorrect: true},
		},
	})
	require.ErrorIs(t, err, util.ErrInvalidQuestion)

	q, err := svc.CreateQuestion(ctx, a.ID, &QuestionRequest{
		Text: "Go has generics",
		Type: model.TrueFalse,
		Options: []model.Option{
			{Text: "true", IsCorrect: true},
			{Text: "false"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Position)
	assert.NotEmpty(t, q.Options[0].ID)

	qs, err := svc.ListQuestions(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.True(t, qs[0].Options[0].IsCorrect)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
	require.NoError(t, svc.DeleteAssessment(ctx, a.ID))
	_, err = svc.GetAssessment(ctx, a.ID)
	require.ErrorIs(t, err, util.ErrNotFound)
}

func TestAssessmentService_CountdownKeepsRunningDuringSlowAnswers(t *testing.T) {
	const interval = 50 * time.Millisecond
	db := newSeededDB(t)
	api := mockapi.New(mockapi.WithLatency(300*time.Millisecond, 0))
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), api, nil, &recordingPublisher{},
		WithTicker(interval, NewTimeTicker),
		WithEngineOptions(WithShuffler(firstShuffler{})))
	ctx := context.Background()

	view, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)
	limit := view.Remaining
	started := time.Now()
	defer svc.ClearAttempt(ctx, "user-1")

	for i := 0; i < 4; i++ {
		_, err := svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
		require.NoError(t, err)
	}

	elapsedPeriods := int(time.Since(started) / interval)
	cur := svc.CurrentAttempt(ctx, "user-1")
	require.Equal(t, model.AttemptInProgress, cur.State)

	// 每个周期计 1 秒；作答往返不应让倒计时停滞
	consumed := limit - cur.Remaining
	assert.GreaterOrEqual(t, consumed, elapsedPeriods-3, "elapsed %d periods, consumed %d", elapsedPeriods, consumed)
	assert.LessOrEqual(t, consumed, elapsedPeriods+2)
}

func TestAssessmentService_SweepDoesNotWaitForSlowAnswers(t *testing.T) {
	db := newSeededDB(t)
	api := mockapi.New()
	svc := NewAssessmentService(repository.NewAssessmentRepository(db), api, nil, &recordingPublisher{},
		WithTicker(time.Second, nil))
	ctx := context.Background()

	_, err := svc.StartAssessment(ctx, "user-1", "assessment-1")
	require.NoError(t, err)
	_, err = svc.StartAssessment(ctx, "user-2", "assessment-1")
	require.NoError(t, err)
	svc.ClearAttempt(ctx, "user-2")

	api.Configure(500*time.Millisecond, 0, 0)
	answered := make(chan error, 1)
	go func() {
		_, err := svc.SubmitAnswer(ctx, "user-1", "question-1", []string{"q1-opt1"})
		answered <- err
	}()
	time.Sleep(50 * time.Millisecond)

	begin := time.Now()
	assert.Equal(t, 1, svc.SweepIdleSessions(-time.Second))
	assert.Less(t, time.Since(begin), 250*time.Millisecond)
	assert.Equal(t, model.AttemptNotStarted, svc.CurrentAttempt(ctx, "user-2").State)

	require.NoError(t, <-answered)
	assert.Equal(t, model.AttemptInProgress, svc.CurrentAttempt(ctx, "user-1").State)
}
