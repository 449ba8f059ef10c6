package model

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptFinalized  AttemptState = "finalized"
)

const (
	FeedbackPassed = "Congratulations! You've passed the assessment."
	FeedbackFailed = "You didn't meet the passing score. Please review the material and try again."
)

func FeedbackFor(passed bool) string {
	if passed {
		return FeedbackPassed
	}
	return FeedbackFailed
}

// swagger:model Answer
type Answer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// AssessmentAttempt 进行中的作答，EndTime 只在判分时写入
// swagger:model AssessmentAttempt
type AssessmentAttempt struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessmentId"`
	UserID       string     `json:"userId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Answers      []Answer   `json:"answers"`
}

// AnswerFor 返回某题的已选选项；未作答返回 false
func (a *AssessmentAttempt) AnswerFor(questionID string) ([]string, bool) {
	for _, ans := range a.Answers {
		if ans.QuestionID == questionID {
			return ans.SelectedOptionIDs, true
		}
	}
	return nil, false
}

// Clone 深拷贝，避免调用方修改引擎内部状态
func (a *AssessmentAttempt) Clone() *AssessmentAttempt {
	if a == nil {
		return nil
	}
	cp := *a
	if a.EndTime != nil {
		end := *a.EndTime
		cp.EndTime = &end
	}
	cp.Answers = make([]Answer, len(a.Answers))
	for i, ans := range a.Answers {
		cp.Answers[i] = Answer{
			QuestionID:        ans.QuestionID,
			SelectedOptionIDs: append([]string(nil), ans.SelectedOptionIDs...),
		}
	}
	return &cp
}

// QuestionDetail 判分后的逐题明细，包含正确答案
// swagger:model QuestionDetail
type QuestionDetail struct {
	Question   Question `json:"question"`
	UserAnswer []string `json:"userAnswer"`
	IsCorrect  bool     `json:"isCorrect"`
}

// swagger:model AttemptResult
type AttemptResult struct {
	AttemptID       string           `json:"attemptId"`
	AssessmentID    string           `json:"assessmentId"`
	UserID          string           `json:"userId"`
	Score           int              `json:"score"`
	CorrectAnswers  int              `json:"correctAnswers"`
	TotalQuestions  int              `json:"totalQuestions"`
	IsPassed        bool             `json:"isPassed"`
	TimedOut        bool             `json:"timedOut"`
	Feedback        string           `json:"feedback"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     time.Time        `json:"completedAt"`
	QuestionDetails []QuestionDetail `json:"questionDetails"`
}

// Clone 深拷贝结果，判分后的结果对调用方只读
func (r *AttemptResult) Clone() *AttemptResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.QuestionDetails != nil {
		cp.QuestionDetails = make([]QuestionDetail, len(r.QuestionDetails))
		for i, d := range r.QuestionDetails {
			d.Question.Options = append(datatypes.JSONSlice[Option](nil), d.Question.Options...)
			d.UserAnswer = append([]string{}, d.UserAnswer...)
			cp.QuestionDetails[i] = d
		}
	}
	return &cp
}

// AttemptRecord 持久化的判分结果，供结果页与报表查询
// swagger:model AttemptRecord
type AttemptRecord struct {
	Entity
	AssessmentID   string                              `gorm:"size:64;index;not null" json:"assessmentId"`
	UserID         string                              `gorm:"size:64;index;not null" json:"userId"`
	Score          int                                 `json:"score"`
	CorrectAnswers int                                 `json:"correctAnswers"`
	TotalQuestions int                                 `json:"totalQuestions"`
	IsPassed       bool                                `json:"isPassed"`
	TimedOut       bool                                `json:"timedOut"`
	Feedback       string                              `gorm:"size:255" json:"feedback"`
	StartedAt      time.Time                           `json:"startedAt"`
	CompletedAt    time.Time                           `gorm:"index" json:"completedAt"`
	Answers        datatypes.JSONSlice[Answer]         `json:"answers"`
	Details        datatypes.JSONSlice[QuestionDetail] `json:"questionDetails"`
}

func (AttemptRecord) TableName() string {
	return "attempt_records"
}

func NewAttemptRecord(r *AttemptResult) *AttemptRecord {
	answers := make([]Answer, 0, len(r.QuestionDetails))
	for _, d := range r.QuestionDetails {
		if len(d.UserAnswer) > 0 {
			answers = append(answers, Answer{QuestionID: d.Question.ID, SelectedOptionIDs: d.UserAnswer})
		}
	}
	return &AttemptRecord{
		Entity:         Entity{ID: r.AttemptID},
		AssessmentID:   r.AssessmentID,
		UserID:         r.UserID,
		Score:          r.Score,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		IsPassed:       r.IsPassed,
		TimedOut:       r.TimedOut,
		Feedback:       r.Feedback,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		Answers:        answers,
		Details:        r.QuestionDetails,
	}
}

// Result 还原为结果视图
func (r *AttemptRecord) Result() *AttemptResult {
	return &AttemptResult{
		AttemptID:       r.ID,
		AssessmentID:    r.AssessmentID,
		UserID:          r.UserID,
		Score:           r.Score,
		CorrectAnswers:  r.CorrectAnswers,
		TotalQuestions:  r.TotalQuestions,
		IsPassed:        r.IsPassed,
		TimedOut:        r.TimedOut,
		Feedback:        r.Feedback,
		StartedAt:       r.StartedAt,
		CompletedAt:     r.CompletedAt,
		QuestionDetails: []QuestionDetail(r.Details),
	}
}
