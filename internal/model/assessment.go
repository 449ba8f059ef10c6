package model

import (
	"gorm.io/datatypes"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
)

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, TrueFalse:
		return true
	}
	return false
}

// Option 题目选项，IsCorrect 只在判分后对学员可见
// swagger:model Option
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// swagger:model Question
type Question struct {
	Entity
	AssessmentID string                     `gorm:"size:64;index" json:"assessmentId"`
	Text         string                     `gorm:"type:text;not null" json:"text"`
	Type         QuestionType               `gorm:"size:20;not null" json:"type"`
	Options      datatypes.JSONSlice[Option] `json:"options"`
	Explanation  string                     `gorm:"type:text" json:"explanation,omitempty"`
	Position     int                        `gorm:"default:0" json:"position"`
}

func (Question) TableName() string {
	return "questions"
}

// HasOption 判断选项是否属于该题
func (q *Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// CorrectOptionIDs 返回正确选项 ID（按选项顺序）
func (q *Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, 1)
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// LearnerOption / LearnerQuestion 是作答过程中下发给学员的视图，不含答案与解析
type LearnerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type LearnerQuestion struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Type    QuestionType    `json:"type"`
	Options []LearnerOption `json:"options"`
}

func (q *Question) LearnerView() LearnerQuestion {
	opts := make([]LearnerOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = LearnerOption{ID: o.ID, Text: o.Text}
	}
	return LearnerQuestion{ID: q.ID, Text: q.Text, Type: q.Type, Options: opts}
}

// swagger:model Assessment
type Assessment struct {
	Entity
	Title            string  `gorm:"size:255;not null" json:"title"`
	Description      string  `gorm:"type:text" json:"description"`
	TimeLimit        int     `gorm:"not null;default:30" json:"timeLimit"` // 分钟
	PassingScore     int     `gorm:"not null;default:70" json:"passingScore"`
	TotalQuestions   int     `gorm:"not null;default:10" json:"totalQuestions"`
	ShuffleQuestions bool    `gorm:"default:false" json:"shuffleQuestions"`
	CourseID         *string `gorm:"size:64;index" json:"courseId,omitempty"`
	ModuleID         *string `gorm:"size:64" json:"moduleId,omitempty"`
}

func (Assessment) TableName() string {
	return "assessments"
}

// TimeLimitSeconds 作答时限（秒），负值按 0 处理
func (a *Assessment) TimeLimitSeconds() int {
	if a.TimeLimit <= 0 {
		return 0
	}
	return a.TimeLimit * 60
}
