package service

import (
	"testing"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(clock Clock) *AttemptEngine {
	n := 0
	return NewAttemptEngine(
		WithClock(clock),
		WithShuffler(firstShuffler{}),
		WithIDGenerator(func() string {
			n++
			return "attempt-" + string(rune('0'+n))
		}),
	)
}

func TestStartWithoutShuffleKeepsCanonicalOrder(t *testing.T) {
	e := newTestEngine(newFakeClock())

	attempt, err := e.Start(testAssessment(2, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, model.AttemptInProgress, e.State())
	assert.Equal(t, []string{"q1", "q2"}, questionIDs(e.Questions()))
	assert.Equal(t, 30*60, e.Remaining())
	assert.Equal(t, "user-1", attempt.UserID)
	assert.Empty(t, attempt.Answers)
	assert.Nil(t, attempt.EndTime)
}

func TestStartShufflesWholePoolThenTruncates(t *testing.T) {
	e := newTestEngine(newFakeClock())

	_, err := e.Start(testAssessment(2, 30, 70, true), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	// Fisher–Yates with j=0 at every step: [q1 q2 q3] -> [q3 q2 q1] -> [q2 q3 q1]
	assert.Equal(t, []string{"q2", "q3"}, questionIDs(e.Questions()))
}

func TestStartClampsTotalToPoolSize(t *testing.T) {
	e := newTestEngine(newFakeClock())

	_, err := e.Start(testAssessment(10, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	assert.Len(t, e.Questions(), 3)
}

func TestStartDoesNotMutatePool(t *testing.T) {
	e := newTestEngine(newFakeClock())
	pool := threeQuestionPool()

	_, err := e.Start(testAssessment(3, 30, 70, true), pool, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "q1", pool[0].ID)
}

func TestStartWhileInProgressIsRejected(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	_, err = e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	assert.ErrorIs(t, err, util.ErrInvalidState)

	e.Reset()
	assert.Equal(t, model.AttemptNotStarted, e.State())
	_, err = e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	assert.NoError(t, err)
}

func TestLearnerViewHidesAnswers(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	q := e.Questions()[0]
	assert.Equal(t, []model.LearnerOption{{ID: "a", Text: "a"}, {ID: "b", Text: "b"}}, q.Options)
}

func TestSubmitAnswerOutsideAttempt(t *testing.T) {
	e := newTestEngine(newFakeClock())

	err := e.SubmitAnswer("q1", []string{"a"})
	assert.ErrorIs(t, err, util.ErrNoActiveAttempt)

	_, err = e.Tick(1)
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = e.Submit()
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestSubmitAnswerValidation(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(2, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	err = e.SubmitAnswer("q3", []string{"e"})
	assert.ErrorIs(t, err, util.ErrNotFound, "q3 was truncated out of the attempt")
	assert.Equal(t, "question", util.NotFoundKind(err))

	err = e.SubmitAnswer("q1", []string{"c"})
	assert.ErrorIs(t, err, util.ErrInvalidOption)
	assert.Empty(t, e.Attempt().Answers)
}

func TestSubmitAnswerIsIdempotentUpsert(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	require.NoError(t, e.SubmitAnswer("q2", []string{"d"}))
	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))
	once := e.Attempt()

	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))
	assert.Equal(t, once, e.Attempt())

	require.NoError(t, e.SubmitAnswer("q2", []string{"c"}))
	answers := e.Attempt().Answers
	require.Len(t, answers, 2)
	assert.Equal(t, "q1", answers[0].QuestionID)
	assert.Equal(t, model.Answer{QuestionID: "q2", SelectedOptionIDs: []string{"c"}}, answers[1])
}

func TestSubmitAnswerCopiesSelection(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	sel := []string{"e", "f"}
	require.NoError(t, e.SubmitAnswer("q3", sel))
	sel[0] = "g"

	got, _ := e.Attempt().AnswerFor("q3")
	assert.Equal(t, []string{"e", "f"}, got)
}

func TestSubmitScoresAndIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(clock)
	_, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))
	require.NoError(t, e.SubmitAnswer("q2", []string{"c"}))
	require.NoError(t, e.SubmitAnswer("q3", []string{"e"}))
	clock.Advance(5 * time.Minute)

	first, err := e.Submit()
	require.NoError(t, err)
	assert.Equal(t, 2, first.CorrectAnswers)
	assert.Equal(t, 3, first.TotalQuestions)
	assert.Equal(t, 67, first.Score)
	assert.False(t, first.IsPassed)
	assert.False(t, first.TimedOut)
	assert.Equal(t, model.FeedbackFailed, first.Feedback)
	assert.Equal(t, clock.Now(), first.CompletedAt)
	assert.Equal(t, model.AttemptFinalized, e.State())
	assert.Zero(t, e.Remaining())
	require.NotNil(t, e.Attempt().EndTime)

	second, err := e.Submit()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, second.CorrectAnswers)

	assert.ErrorIs(t, e.SubmitAnswer("q1", []string{"b"}), util.ErrInvalidState)
}

func TestSubmitRevealsDetails(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 60, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))
	require.NoError(t, e.SubmitAnswer("q3", []string{"f", "e"}))

	res, err := e.Submit()
	require.NoError(t, err)
	require.Len(t, res.QuestionDetails, 3)

	assert.True(t, res.QuestionDetails[0].IsCorrect)
	assert.False(t, res.QuestionDetails[1].IsCorrect)
	assert.Empty(t, res.QuestionDetails[1].UserAnswer)
	assert.True(t, res.QuestionDetails[2].IsCorrect)
	assert.Equal(t, []string{"e", "f"}, res.QuestionDetails[2].Question.CorrectOptionIDs())
	assert.Equal(t, 67, res.Score)
	assert.True(t, res.IsPassed)
	assert.Equal(t, model.FeedbackPassed, res.Feedback)
}

func TestTickCountsDownAndAutoSubmitsOnce(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 1, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	res, err := e.Tick(59)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 1, e.Remaining())

	res, err = e.Tick(5)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
	assert.Zero(t, e.Remaining())

	_, err = e.Tick(1)
	assert.ErrorIs(t, err, util.ErrInvalidState, "no second auto-submit")

	again, err := e.Submit()
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestFinalizedResultIsImmutableForCallers(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 30, 60, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))

	res, err := e.Submit()
	require.NoError(t, err)
	res.Score = 100
	res.IsPassed = true
	res.QuestionDetails[0].UserAnswer[0] = "b"
	res.QuestionDetails[0].Question.Options[0].IsCorrect = false

	for _, got := range []*model.AttemptResult{e.Result(), mustSubmit(t, e)} {
		assert.Equal(t, 33, got.Score)
		assert.False(t, got.IsPassed)
		assert.Equal(t, []string{"a"}, got.QuestionDetails[0].UserAnswer)
		assert.Equal(t, []string{"a"}, got.QuestionDetails[0].Question.CorrectOptionIDs())
	}

	view := e.Result()
	view.QuestionDetails = nil
	assert.Len(t, e.Result().QuestionDetails, 3)
}

func mustSubmit(t *testing.T, e *AttemptEngine) *model.AttemptResult {
	t.Helper()
	res, err := e.Submit()
	require.NoError(t, err)
	return res
}

func TestZeroTimeLimitFinalizesOnFirstTick(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(3, 0, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	assert.Zero(t, e.Remaining())

	res, err := e.Tick(1)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 0, res.CorrectAnswers)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 0, res.Score)
	for _, d := range res.QuestionDetails {
		assert.False(t, d.IsCorrect)
	}
}

func TestRestartAfterFinalizeStartsFresh(t *testing.T) {
	e := newTestEngine(newFakeClock())
	first, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	require.NoError(t, e.SubmitAnswer("q1", []string{"a"}))
	_, err = e.Submit()
	require.NoError(t, err)

	second, err := e.Start(testAssessment(3, 30, 70, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, e.Attempt().Answers)
	assert.Nil(t, e.Result())
	assert.Equal(t, 30*60, e.Remaining())
}

func TestEmptyAttemptScoresZero(t *testing.T) {
	e := newTestEngine(newFakeClock())
	_, err := e.Start(testAssessment(0, 30, 0, false), threeQuestionPool(), "user-1")
	require.NoError(t, err)

	res, err := e.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalQuestions)
	assert.Equal(t, 0, res.Score)
	assert.True(t, res.IsPassed, "passing score 0 is always met")
}
