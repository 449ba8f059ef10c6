package service

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"

	"github.com/google/uuid"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Shuffler 提供 [0,n) 的随机整数，*rand.Rand 满足该接口
type Shuffler interface {
	Intn(n int) int
}

type EngineOption func(*AttemptEngine)

func WithClock(c Clock) EngineOption {
	return func(e *AttemptEngine) { e.clock = c }
}

func WithShuffler(s Shuffler) EngineOption {
	return func(e *AttemptEngine) { e.shuffler = s }
}

func WithIDGenerator(fn func() string) EngineOption {
	return func(e *AttemptEngine) { e.newID = fn }
}

// AttemptEngine 单个学员的作答状态机：NotStarted -> InProgress -> Finalized。
// 所有方法都是同步的，不做并发保护，调用方需要串行化同一学员的操作。
type AttemptEngine struct {
	clock    Clock
	shuffler Shuffler
	newID    func() string

	state      model.AttemptState
	assessment model.Assessment
	questions  []model.Question
	attempt    *model.AssessmentAttempt
	remaining  int
	result     *model.AttemptResult
}

func NewAttemptEngine(opts ...EngineOption) *AttemptEngine {
	e := &AttemptEngine{
		clock:    systemClock{},
		shuffler: rand.New(rand.NewSource(time.Now().UnixNano())),
		newID:    func() string { return "attempt-" + uuid.NewString() },
		state:    model.AttemptNotStarted,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start 开始新的作答。进行中的作答不能被覆盖，需先 Reset。
func (e *AttemptEngine) Start(assessment model.Assessment, pool []model.Question, userID string) (*model.AssessmentAttempt, error) {
	if e.state == model.AttemptInProgress {
		return nil, util.ErrAttemptInProgress
	}

	questions := append([]model.Question(nil), pool...)
	if assessment.ShuffleQuestions {
		e.shuffle(questions)
	}
	n := assessment.TotalQuestions
	if n < 0 {
		n = 0
	}
	if n < len(questions) {
		questions = questions[:n]
	}

	e.assessment = assessment
	e.questions = questions
	e.attempt = &model.AssessmentAttempt{
		ID:           e.newID(),
		AssessmentID: assessment.ID,
		UserID:       userID,
		StartTime:    e.clock.Now(),
		Answers:      []model.Answer{},
	}
	e.remaining = assessment.TimeLimitSeconds()
	e.result = nil
	e.state = model.AttemptInProgress
	return e.attempt.Clone(), nil
}

// shuffle Fisher–Yates，从后往前与 [0,i] 中的随机位置交换
func (e *AttemptEngine) shuffle(qs []model.Question) {
	for i := len(qs) - 1; i > 0; i-- {
		j := e.shuffler.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// SubmitAnswer 记录（覆盖）某题的作答，选项必须属于该题
func (e *AttemptEngine) SubmitAnswer(questionID string, selected []string) error {
	if e.state != model.AttemptInProgress {
		return util.ErrNoActiveAttempt
	}
	q := e.question(questionID)
	if q == nil {
		return util.NewNotFound("question", questionID)
	}
	for _, id := range selected {
		if !q.HasOption(id) {
			return fmt.Errorf("%w: %q is not an option of %q", util.ErrInvalidOption, id, questionID)
		}
	}

	ids := append([]string{}, selected...)
	for i := range e.attempt.Answers {
		if e.attempt.Answers[i].QuestionID == questionID {
			e.attempt.Answers[i].SelectedOptionIDs = ids
			return nil
		}
	}
	e.attempt.Answers = append(e.attempt.Answers, model.Answer{QuestionID: questionID, SelectedOptionIDs: ids})
	sort.Slice(e.attempt.Answers, func(i, j int) bool {
		return e.attempt.Answers[i].QuestionID < e.attempt.Answers[j].QuestionID
	})
	return nil
}

// Tick 倒计时推进 delta 秒；归零时自动判分并返回结果，否则返回 nil
func (e *AttemptEngine) Tick(delta int) (*model.AttemptResult, error) {
	if e.state != model.AttemptInProgress {
		return nil, util.ErrNoActiveAttempt
	}
	if delta < 0 {
		delta = 0
	}
	e.remaining -= delta
	if e.remaining > 0 {
		return nil, nil
	}
	e.remaining = 0
	return e.finalize(true), nil
}

// Submit 交卷判分；已判分时直接返回缓存的结果
func (e *AttemptEngine) Submit() (*model.AttemptResult, error) {
	switch e.state {
	case model.AttemptFinalized:
		return e.result.Clone(), nil
	case model.AttemptInProgress:
		return e.finalize(false), nil
	default:
		return nil, util.ErrNoActiveAttempt
	}
}

// Reset 放弃当前作答，回到 NotStarted
func (e *AttemptEngine) Reset() {
	e.state = model.AttemptNotStarted
	e.assessment = model.Assessment{}
	e.questions = nil
	e.attempt = nil
	e.remaining = 0
	e.result = nil
}

func (e *AttemptEngine) finalize(timedOut bool) *model.AttemptResult {
	now := e.clock.Now()
	e.attempt.EndTime = &now

	details := make([]model.QuestionDetail, len(e.questions))
	correct := 0
	for i := range e.questions {
		q := &e.questions[i]
		selected, _ := e.attempt.AnswerFor(q.ID)
		ok := GradeQuestion(q, selected)
		if ok {
			correct++
		}
		details[i] = model.QuestionDetail{
			Question:   *q,
			UserAnswer: append([]string{}, selected...),
			IsCorrect:  ok,
		}
	}

	total := len(e.questions)
	score := ComputeScore(correct, total)
	passed := score >= e.assessment.PassingScore
	e.result = &model.AttemptResult{
		AttemptID:       e.attempt.ID,
		AssessmentID:    e.assessment.ID,
		UserID:          e.attempt.UserID,
		Score:           score,
		CorrectAnswers:  correct,
		TotalQuestions:  total,
		IsPassed:        passed,
		TimedOut:        timedOut,
		Feedback:        model.FeedbackFor(passed),
		StartedAt:       e.attempt.StartTime,
		CompletedAt:     now,
		QuestionDetails: details,
	}
	e.remaining = 0
	e.state = model.AttemptFinalized
	return e.result.Clone()
}

func (e *AttemptEngine) question(id string) *model.Question {
	for i := range e.questions {
		if e.questions[i].ID == id {
			return &e.questions[i]
		}
	}
	return nil
}

func (e *AttemptEngine) State() model.AttemptState { return e.state }

func (e *AttemptEngine) Remaining() int { return e.remaining }

func (e *AttemptEngine) Assessment() model.Assessment { return e.assessment }

// Attempt 返回当前作答的副本；NotStarted 时为 nil
func (e *AttemptEngine) Attempt() *model.AssessmentAttempt {
	return e.attempt.Clone()
}

// Questions 返回学员视图，不含正确答案与解析
func (e *AttemptEngine) Questions() []model.LearnerQuestion {
	out := make([]model.LearnerQuestion, len(e.questions))
	for i := range e.questions {
		out[i] = e.questions[i].LearnerView()
	}
	return out
}

func (e *AttemptEngine) Result() *model.AttemptResult { return e.result.Clone() }
