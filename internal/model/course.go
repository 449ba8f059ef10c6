package model

import (
	"time"
)

type LessonType string

const (
	LessonPDF   LessonType = "pdf"
	LessonVideo LessonType = "video"
	LessonText  LessonType = "text"
	LessonLink  LessonType = "link"
)

func (t LessonType) Valid() bool {
	switch t {
	case LessonPDF, LessonVideo, LessonText, LessonLink:
		return true
	}
	return false
}

// Lesson 课时；Completed 是针对当前学员的叠加字段，不入库
// swagger:model Lesson
type Lesson struct {
	Entity
	ModuleID  string     `gorm:"size:64;index;not null" json:"moduleId"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Type      LessonType `gorm:"size:20;not null" json:"type"`
	Content   string     `gorm:"type:text" json:"content"`
	Duration  int        `gorm:"default:0" json:"duration"` // 分钟
	Position  int        `gorm:"default:0" json:"position"`
	Completed bool       `gorm:"-" json:"completed"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// swagger:model Module
type Module struct {
	Entity
	CourseID           string        `gorm:"size:64;index;not null" json:"courseId"`
	Title              string        `gorm:"size:255;not null" json:"title"`
	Description        string        `gorm:"type:text" json:"description"`
	Position           int           `gorm:"default:0" json:"position"`
	Lessons            []Lesson      `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"lessons"`
	Completed          bool          `gorm:"-" json:"completed"`
	ProgressPercentage float64       `gorm:"-" json:"progressPercentage"`
	Progress           ProgressState `gorm:"-" json:"progress"`
}

func (Module) TableName() string {
	return "modules"
}

// swagger:model Course
type Course struct {
	Entity
	Title              string        `gorm:"size:255;not null" json:"title"`
	Description        string        `gorm:"type:text" json:"description"`
	Thumbnail          string        `gorm:"size:512" json:"thumbnail"`
	InstructorName     string        `gorm:"size:100" json:"instructorName"`
	InstructorTitle    string        `gorm:"size:100" json:"instructorTitle"`
	Duration           int           `gorm:"default:0" json:"duration"` // 分钟
	Modules            []Module      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"modules"`
	Enrolled           bool          `gorm:"-" json:"enrolled"`
	Completed          bool          `gorm:"-" json:"completed"`
	ProgressPercentage float64       `gorm:"-" json:"progressPercentage"`
	Progress           ProgressState `gorm:"-" json:"progress"`
}

func (Course) TableName() string {
	return "courses"
}

// Clone 深拷贝课程树，进度计算只在副本上进行
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Modules = make([]Module, len(c.Modules))
	for i, m := range c.Modules {
		mc := m
		mc.Lessons = append([]Lesson(nil), m.Lessons...)
		cp.Modules[i] = mc
	}
	return &cp
}

func (c *Course) FindModule(moduleID string) (*Module, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == moduleID {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

func (m *Module) FindLesson(lessonID string) (*Lesson, bool) {
	for i := range m.Lessons {
		if m.Lessons[i].ID == lessonID {
			return &m.Lessons[i], true
		}
	}
	return nil, false
}

func (m *Module) CompletedLessons() int {
	n := 0
	for _, l := range m.Lessons {
		if l.Completed {
			n++
		}
	}
	return n
}

// LessonCompletion 学员完成课时的持久化记录，(user, lesson) 唯一
// swagger:model LessonCompletion
type LessonCompletion struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string    `gorm:"size:64;uniqueIndex:idx_user_lesson;not null" json:"userId"`
	LessonID    string    `gorm:"size:64;uniqueIndex:idx_user_lesson;not null" json:"lessonId"`
	ModuleID    string    `gorm:"size:64;not null" json:"moduleId"`
	CourseID    string    `gorm:"size:64;index;not null" json:"courseId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}

// swagger:model Enrollment
type Enrollment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"size:64;uniqueIndex:idx_user_course;not null" json:"userId"`
	CourseID   string    `gorm:"size:64;uniqueIndex:idx_user_course;index;not null" json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
