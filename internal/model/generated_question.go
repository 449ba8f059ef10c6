package model

import (
	"time"

	"gorm.io/datatypes"
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type QuestionSource string

const (
	SourceDocument   QuestionSource = "document"
	SourceText       QuestionSource = "text"
	SourceTranscript QuestionSource = "transcript"
)

// GeneratedQuestion AI 生成、待人工审核的题目
// swagger:model GeneratedQuestion
type GeneratedQuestion struct {
	Entity
	Text               string                      `gorm:"type:text;not null" json:"text"`
	Type               QuestionType                `gorm:"size:20;not null" json:"type"`
	Options            datatypes.JSONSlice[Option] `json:"options"`
	Explanation        string                      `gorm:"type:text" json:"explanation,omitempty"`
	Status             ReviewStatus                `gorm:"size:20;index;default:'pending'" json:"status"`
	Source             QuestionSource              `gorm:"size:20" json:"source"`
	SourceReference    string                      `gorm:"size:255" json:"sourceReference,omitempty"`
	SourceFileURL      string                      `gorm:"size:512" json:"sourceFileUrl,omitempty"`
	CourseID           *string                     `gorm:"size:64" json:"courseId,omitempty"`
	ModuleID           *string                     `gorm:"size:64" json:"moduleId,omitempty"`
	LessonID           *string                     `gorm:"size:64" json:"lessonId,omitempty"`
	AssessmentID       *string                     `gorm:"size:64;index" json:"assessmentId,omitempty"`
	Feedback           string                      `gorm:"type:text" json:"feedback,omitempty"`
	ReviewedBy         string                      `gorm:"size:64" json:"reviewedBy,omitempty"`
	ReviewedAt         *time.Time                  `json:"reviewedAt,omitempty"`
	ApprovedQuestionID *string                     `gorm:"size:64" json:"approvedQuestionId,omitempty"`
}

func (GeneratedQuestion) TableName() string {
	return "generated_questions"
}

// ToQuestion 审核通过后转换为题库中的正式题目
func (g *GeneratedQuestion) ToQuestion(assessmentID string, position int) *Question {
	opts := make([]Option, len(g.Options))
	copy(opts, g.Options)
	return &Question{
		AssessmentID: assessmentID,
		Text:         g.Text,
		Type:         g.Type,
		Options:      opts,
		Explanation:  g.Explanation,
		Position:     position,
	}
}
