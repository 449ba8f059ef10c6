package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"
	"corp_learning_backend/pkg/monitoring"
	"corp_learning_backend/pkg/tracing"

	"go.uber.org/zap"
)

type AssessmentRequest struct {
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description"`
	TimeLimit        int     `json:"timeLimit" binding:"min=0"`
	PassingScore     int     `json:"passingScore" binding:"min=0,max=100"`
	TotalQuestions   int     `json:"totalQuestions" binding:"min=0"`
	ShuffleQuestions bool    `json:"shuffleQuestions"`
	CourseID         *string `json:"courseId"`
	ModuleID         *string `json:"moduleId"`
}

func (r *AssessmentRequest) validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if r.PassingScore < 0 || r.PassingScore > 100 {
		return fmt.Errorf("%w: passingScore must be within 0-100", util.ErrValidation)
	}
	if r.TimeLimit < 0 || r.TotalQuestions < 0 {
		return fmt.Errorf("%w: timeLimit and totalQuestions must not be negative", util.ErrValidation)
	}
	return nil
}

func (r *AssessmentRequest) apply(a *model.Assessment) {
	a.Title = strings.TrimSpace(r.Title)
	a.Description = r.Description
	a.TimeLimit = r.TimeLimit
	a.PassingScore = r.PassingScore
	a.TotalQuestions = r.TotalQuestions
	a.ShuffleQuestions = r.ShuffleQuestions
	a.CourseID = r.CourseID
	a.ModuleID = r.ModuleID
}

type QuestionRequest struct {
	Text        string             `json:"text" binding:"required"`
	Type        model.QuestionType `json:"type" binding:"required"`
	Options     []model.Option     `json:"options" binding:"required,min=2"`
	Explanation string             `json:"explanation"`
	Position    *int               `json:"position"`
}

// AttemptView 学员可见的作答快照，判分前不包含答案
type AttemptView struct {
	State      model.AttemptState       `json:"state"`
	Assessment *model.Assessment        `json:"assessment,omitempty"`
	Attempt    *model.AssessmentAttempt `json:"attempt,omitempty"`
	Questions  []model.LearnerQuestion  `json:"questions,omitempty"`
	Remaining  int                      `json:"remainingSeconds"`
	Result     *model.AttemptResult     `json:"result,omitempty"`
}

// attemptSession 模拟网络往返期间不持有 mu，只在读写引擎时加锁
type attemptSession struct {
	mu          sync.Mutex
	engine      *AttemptEngine
	countdown   *Countdown
	persistedID string
	lastActive  time.Time
	// evicted 表示已被空闲清理移出 sessions，持有者需重新获取
	evicted bool
}

func (sess *attemptSession) view() *AttemptView {
	e := sess.engine
	v := &AttemptView{State: e.State()}
	if e.State() == model.AttemptNotStarted {
		return v
	}
	a := e.Assessment()
	v.Assessment = &a
	v.Attempt = e.Attempt()
	v.Questions = e.Questions()
	v.Remaining = e.Remaining()
	v.Result = e.Result()
	return v
}

func (sess *attemptSession) stopCountdown() {
	if sess.countdown != nil {
		sess.countdown.Stop()
		sess.countdown = nil
	}
}

type AssessmentOption func(*AssessmentService)

// WithTicker 设置倒计时周期与触发源；factory 为 nil 时不启动倒计时
func WithTicker(interval time.Duration, factory TickerFactory) AssessmentOption {
	return func(s *AssessmentService) {
		s.tickInterval = interval
		s.newTicker = factory
	}
}

func WithEngineOptions(opts ...EngineOption) AssessmentOption {
	return func(s *AssessmentService) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

type AssessmentService struct {
	Repo   *repository.AssessmentRepository
	API    *mockapi.Client
	Cache  CatalogCache
	Events EventPublisher

	tickInterval time.Duration
	newTicker    TickerFactory
	engineOpts   []EngineOption

	mu       sync.Mutex
	sessions map[string]*attemptSession
}

func NewAssessmentService(repo *repository.AssessmentRepository, api *mockapi.Client, cache CatalogCache, events EventPublisher, opts ...AssessmentOption) *AssessmentService {
	s := &AssessmentService{
		Repo:         repo,
		API:          api,
		Cache:        cache,
		Events:       events,
		tickInterval: time.Second,
		newTicker:    NewTimeTicker,
		sessions:     make(map[string]*attemptSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Cache == nil {
		s.Cache = noopCache{}
	}
	return s
}

func (s *AssessmentService) session(userID string) *attemptSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &attemptSession{engine: NewAttemptEngine(s.engineOpts...)}
		s.sessions[userID] = sess
	}
	return sess
}

func (s *AssessmentService) existingSession(userID string) (*attemptSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// lockedSession 返回已加锁的会话；create 为 false 且会话不存在时返回 false
func (s *AssessmentService) lockedSession(userID string, create bool) (*attemptSession, bool) {
	for {
		var sess *attemptSession
		if create {
			sess = s.session(userID)
		} else {
			var ok bool
			if sess, ok = s.existingSession(userID); !ok {
				return nil, false
			}
		}
		sess.mu.Lock()
		if !sess.evicted {
			return sess, true
		}
		sess.mu.Unlock()
	}
}

func (s *AssessmentService) publish(userID string, msg WSMessage) {
	if s.Events != nil {
		s.Events.Publish(userID, msg)
	}
}

// ListAssessments courseID 为空时返回全部测评（走目录缓存）
func (s *AssessmentService) ListAssessments(ctx context.Context, courseID string) ([]model.Assessment, error) {
	if courseID == "" {
		var cached []model.Assessment
		if s.Cache.Get(ctx, cacheKeyAssessments, &cached) {
			return cached, nil
		}
	}
	list, err := mockapi.Fetch(ctx, s.API, "GET", "/api/assessments", func(ctx context.Context) ([]model.Assessment, error) {
		return s.Repo.ListAssessments(ctx, courseID)
	})
	if err != nil {
		return nil, err
	}
	if courseID == "" {
		s.Cache.Set(ctx, cacheKeyAssessments, list)
	}
	return list, nil
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	return mockapi.Fetch(ctx, s.API, "GET", "/api/assessments/"+id, func(ctx context.Context) (*model.Assessment, error) {
		return s.Repo.FindAssessmentByID(ctx, id)
	})
}

// StartAssessment 加载测评与题库并开始作答；进行中的旧作答被放弃
func (s *AssessmentService) StartAssessment(ctx context.Context, userID, assessmentID string) (*AttemptView, error) {
	ctx, span := tracing.Start(ctx, "AssessmentService.StartAssessment")
	defer span.End()

	assessment, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	pool, err := mockapi.Fetch(ctx, s.API, "GET", "/api/assessments/"+assessmentID+"/questions", func(ctx context.Context) ([]model.Question, error) {
		return s.Repo.ListQuestions(ctx, assessmentID)
	})
	if err != nil {
		return nil, err
	}

	sess, _ := s.lockedSession(userID, true)
	defer sess.mu.Unlock()

	if sess.engine.State() == model.AttemptInProgress {
		s.abandonLocked(userID, sess)
	}
	attempt, err := sess.engine.Start(*assessment, pool, userID)
	if err != nil {
		return nil, err
	}
	sess.lastActive = time.Now()

	monitoring.AttemptsStarted.WithLabelValues(assessment.ID).Inc()
	monitoring.ActiveAttempts.Inc()
	logger.Log.Info("Assessment attempt started",
		zap.String("userId", userID),
		zap.String("assessmentId", assessment.ID),
		zap.String("attemptId", attempt.ID),
		zap.Int("questions", len(sess.engine.Questions())),
		zap.Int("remainingSeconds", sess.engine.Remaining()))

	s.startCountdown(userID, sess, attempt.ID)
	return sess.view(), nil
}

func (s *AssessmentService) startCountdown(userID string, sess *attemptSession, attemptID string) {
	if s.newTicker == nil {
		return
	}
	cd := NewCountdown(s.tickInterval, s.newTicker, func(delta int) bool {
		return s.onTick(userID, sess, attemptID, delta)
	})
	sess.countdown = cd
	go cd.Run(context.Background())
}

// onTick 由倒计时协程调用；返回 true 时倒计时结束
func (s *AssessmentService) onTick(userID string, sess *attemptSession, attemptID string, delta int) bool {
	sess.mu.Lock()
	cur := sess.engine.Attempt()
	if sess.engine.State() != model.AttemptInProgress || cur == nil || cur.ID != attemptID {
		sess.mu.Unlock()
		return true
	}
	res, err := s.tickLocked(userID, sess, delta)
	sess.mu.Unlock()

	if err != nil {
		return true
	}
	if res == nil {
		return false
	}
	s.persistAutoSubmitted(context.Background(), sess, res)
	return true
}

// Tick 手动推进倒计时（倒计时被禁用时由调用方驱动）
func (s *AssessmentService) Tick(ctx context.Context, userID string, delta int) (*AttemptView, error) {
	sess, ok := s.lockedSession(userID, false)
	if !ok {
		return nil, util.ErrNoActiveAttempt
	}
	res, err := s.tickLocked(userID, sess, delta)
	view := sess.view()
	sess.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if res != nil {
		s.persistAutoSubmitted(ctx, sess, res)
	}
	return view, nil
}

// tickLocked 返回非 nil 结果表示本次 tick 触发了超时交卷
func (s *AssessmentService) tickLocked(userID string, sess *attemptSession, delta int) (*model.AttemptResult, error) {
	res, err := sess.engine.Tick(delta)
	if err != nil {
		return nil, err
	}
	if res == nil {
		s.publish(userID, WSMessage{Type: EventTick, Data: map[string]interface{}{
			"attemptId":        sess.engine.Attempt().ID,
			"remainingSeconds": sess.engine.Remaining(),
		}})
		return nil, nil
	}
	s.onFinalized(userID, sess, res, "timeout")
	return res, nil
}

// persistAutoSubmitted 超时交卷的持久化失败不影响结果，学员再次提交时会重试写入
func (s *AssessmentService) persistAutoSubmitted(ctx context.Context, sess *attemptSession, res *model.AttemptResult) {
	err := s.API.Do(ctx, "POST", "/api/attempts/"+res.AttemptID+"/result", func(ctx context.Context) error {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return s.saveRecord(ctx, sess, res)
	})
	if err != nil {
		logger.Log.Warn("Auto-submitted attempt not persisted",
			zap.String("attemptId", res.AttemptID), zap.Error(err))
	}
}

// SubmitAnswer 经模拟网络写入作答；网络失败时作答不生效。
// 往返延迟期间不持有会话锁，倒计时照常推进。
func (s *AssessmentService) SubmitAnswer(ctx context.Context, userID, questionID string, selected []string) (*AttemptView, error) {
	sess, ok := s.existingSession(userID)
	if !ok {
		return nil, util.ErrNoActiveAttempt
	}

	var view *AttemptView
	err := s.API.Do(ctx, "PUT", "/api/attempts/current/answers/"+questionID, func(context.Context) error {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.evicted {
			return util.ErrNoActiveAttempt
		}
		if err := sess.engine.SubmitAnswer(questionID, selected); err != nil {
			return err
		}
		sess.lastActive = time.Now()
		view = sess.view()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(userID, WSMessage{Type: EventAnswered, Data: map[string]interface{}{
		"questionId":        questionID,
		"selectedOptionIds": selected,
	}})
	return view, nil
}

// SubmitAssessment 交卷判分；重复调用返回同一结果，未持久化的结果会再次尝试写入
func (s *AssessmentService) SubmitAssessment(ctx context.Context, userID string) (*model.AttemptResult, error) {
	ctx, span := tracing.Start(ctx, "AssessmentService.SubmitAssessment")
	defer span.End()

	sess, ok := s.lockedSession(userID, false)
	if !ok {
		return nil, util.ErrNoActiveAttempt
	}
	if sess.engine.State() == model.AttemptNotStarted {
		sess.mu.Unlock()
		return nil, util.ErrNoActiveAttempt
	}
	attemptID := sess.engine.Attempt().ID
	sess.mu.Unlock()

	var result *model.AttemptResult
	err := s.API.Do(ctx, "POST", "/api/attempts/"+attemptID+"/submit", func(ctx context.Context) error {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		// 往返期间作答可能已被放弃、重新开始或清理
		if cur := sess.engine.Attempt(); sess.evicted || cur == nil || cur.ID != attemptID {
			return util.ErrNoActiveAttempt
		}
		wasInProgress := sess.engine.State() == model.AttemptInProgress
		res, err := sess.engine.Submit()
		if err != nil {
			return err
		}
		if wasInProgress {
			s.onFinalized(userID, sess, res, "submitted")
		}
		result = res
		sess.lastActive = time.Now()
		return s.saveRecord(ctx, sess, res)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AssessmentService) onFinalized(userID string, sess *attemptSession, res *model.AttemptResult, reason string) {
	sess.stopCountdown()
	monitoring.ActiveAttempts.Dec()
	monitoring.ObserveAttemptFinalized(res.Score, res.IsPassed, reason)
	logger.Log.Info("Assessment attempt finalized",
		zap.String("userId", userID),
		zap.String("attemptId", res.AttemptID),
		zap.String("reason", reason),
		zap.Int("score", res.Score),
		zap.Int("correct", res.CorrectAnswers),
		zap.Int("total", res.TotalQuestions),
		zap.Bool("passed", res.IsPassed))
	s.publish(userID, WSMessage{Type: EventFinalized, Data: res})
}

// saveRecord 调用方持有 sess.mu；同一作答只写入一次
func (s *AssessmentService) saveRecord(ctx context.Context, sess *attemptSession, res *model.AttemptResult) error {
	if sess.persistedID == res.AttemptID {
		return nil
	}
	if err := s.Repo.SaveAttemptRecord(ctx, model.NewAttemptRecord(res)); err != nil {
		return err
	}
	sess.persistedID = res.AttemptID
	s.Cache.Invalidate(ctx, cacheKeyReports)
	return nil
}

// CurrentAttempt 当前学员的作答快照；从未开始时 State 为 not_started
func (s *AssessmentService) CurrentAttempt(ctx context.Context, userID string) *AttemptView {
	sess, ok := s.lockedSession(userID, false)
	if !ok {
		return &AttemptView{State: model.AttemptNotStarted}
	}
	defer sess.mu.Unlock()
	return sess.view()
}

// ClearAttempt 放弃当前作答（离开页面），不判分也不持久化
func (s *AssessmentService) ClearAttempt(ctx context.Context, userID string) {
	sess, ok := s.lockedSession(userID, false)
	if !ok {
		return
	}
	defer sess.mu.Unlock()
	if sess.engine.State() == model.AttemptInProgress {
		s.abandonLocked(userID, sess)
	}
	sess.engine.Reset()
}

func (s *AssessmentService) abandonLocked(userID string, sess *attemptSession) {
	attempt := sess.engine.Attempt()
	sess.stopCountdown()
	sess.engine.Reset()
	monitoring.ActiveAttempts.Dec()
	logger.Log.Info("Assessment attempt abandoned",
		zap.String("userId", userID),
		zap.String("attemptId", attempt.ID))
	s.publish(userID, WSMessage{Type: EventAbandoned, Data: map[string]string{"attemptId": attempt.ID}})
}

// FetchResults 优先返回内存中的结果，否则查询持久化记录；只能查询自己的作答
func (s *AssessmentService) FetchResults(ctx context.Context, userID, attemptID string) (*model.AttemptResult, error) {
	if sess, ok := s.existingSession(userID); ok {
		sess.mu.Lock()
		res := sess.engine.Result()
		sess.mu.Unlock()
		if res != nil && res.AttemptID == attemptID {
			return res, nil
		}
	}
	rec, err := mockapi.Fetch(ctx, s.API, "GET", "/api/attempts/"+attemptID+"/result", func(ctx context.Context) (*model.AttemptRecord, error) {
		return s.Repo.FindAttemptRecord(ctx, attemptID)
	})
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, util.NewNotFound("attempt", attemptID)
	}
	return rec.Result(), nil
}

func (s *AssessmentService) AttemptHistory(ctx context.Context, userID string) ([]model.AttemptRecord, error) {
	return mockapi.Fetch(ctx, s.API, "GET", "/api/attempts", func(ctx context.Context) ([]model.AttemptRecord, error) {
		return s.Repo.ListAttemptRecordsByUser(ctx, userID)
	})
}

// SweepIdleSessions 清理长时间无操作且不在作答中的会话，返回清理数量。
// 先在 s.mu 下复制快照，逐个检查时不持有 s.mu，避免阻塞其他学员。
func (s *AssessmentService) SweepIdleSessions(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	s.mu.Lock()
	snapshot := make(map[string]*attemptSession, len(s.sessions))
	for userID, sess := range s.sessions {
		snapshot[userID] = sess
	}
	s.mu.Unlock()

	removed := 0
	for userID, sess := range snapshot {
		sess.mu.Lock()
		if sess.engine.State() != model.AttemptInProgress && sess.lastActive.Before(cutoff) {
			s.mu.Lock()
			if s.sessions[userID] == sess {
				delete(s.sessions, userID)
				sess.evicted = true
				removed++
			}
			s.mu.Unlock()
		}
		sess.mu.Unlock()
	}
	return removed
}

func (s *AssessmentService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Admin operations

func (s *AssessmentService) CreateAssessment(ctx context.Context, req *AssessmentRequest) (*model.Assessment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a := &model.Assessment{}
	req.apply(a)
	err := s.API.Do(ctx, "POST", "/api/admin/assessments", func(ctx context.Context) error {
		return s.Repo.CreateAssessment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, cacheKeyAssessments)
	return a, nil
}

func (s *AssessmentService) UpdateAssessment(ctx context.Context, id string, req *AssessmentRequest) (*model.Assessment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a, err := s.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(a)
	err = s.API.Do(ctx, "PUT", "/api/admin/assessments/"+id, func(ctx context.Context) error {
		return s.Repo.UpdateAssessment(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, cacheKeyAssessments)
	return a, nil
}

func (s *AssessmentService) DeleteAssessment(ctx context.Context, id string) error {
	err := s.API.Do(ctx, "DELETE", "/api/admin/assessments/"+id, func(ctx context.Context) error {
		return s.Repo.DeleteAssessment(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, cacheKeyAssessments)
	return nil
}

// ListQuestions 管理端题库视图，包含正确答案
func (s *AssessmentService) ListQuestions(ctx context.Context, assessmentID string) ([]model.Question, error) {
	if _, err := s.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	return mockapi.Fetch(ctx, s.API, "GET", "/api/admin/assessments/"+assessmentID+"/questions", func(ctx context.Context) ([]model.Question, error) {
		return s.Repo.ListQuestions(ctx, assessmentID)
	})
}

func buildQuestion(q *model.Question, req *QuestionRequest) error {
	q.Text = strings.TrimSpace(req.Text)
	q.Type = req.Type
	q.Explanation = req.Explanation
	opts := make([]model.Option, len(req.Options))
	for i, o := range req.Options {
		if o.ID == "" {
			o.ID = model.NewID()
		}
		opts[i] = o
	}
	q.Options = opts
	if req.Position != nil {
		q.Position = *req.Position
	}
	return ValidateQuestion(q)
}

func (s *AssessmentService) CreateQuestion(ctx context.Context, assessmentID string, req *QuestionRequest) (*model.Question, error) {
	if _, err := s.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	q := &model.Question{AssessmentID: assessmentID}
	if err := buildQuestion(q, req); err != nil {
		return nil, err
	}
	err := s.API.Do(ctx, "POST", "/api/admin/assessments/"+assessmentID+"/questions", func(ctx context.Context) error {
		if req.Position == nil {
			pos, err := s.Repo.NextQuestionPosition(ctx, assessmentID)
			if err != nil {
				return err
			}
			q.Position = pos
		}
		return s.Repo.CreateQuestion(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) UpdateQuestion(ctx context.Context, id string, req *QuestionRequest) (*model.Question, error) {
	q, err := mockapi.Fetch(ctx, s.API, "GET", "/api/admin/questions/"+id, func(ctx context.Context) (*model.Question, error) {
		return s.Repo.FindQuestionByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if err := buildQuestion(q, req); err != nil {
		return nil, err
	}
	err = s.API.Do(ctx, "PUT", "/api/admin/questions/"+id, func(ctx context.Context) error {
		return s.Repo.UpdateQuestion(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *AssessmentService) DeleteQuestion(ctx context.Context, id string) error {
	return s.API.Do(ctx, "DELETE", "/api/admin/questions/"+id, func(ctx context.Context) error {
		return s.Repo.DeleteQuestion(ctx, id)
	})
}
