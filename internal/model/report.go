package model

// CourseReport 课程维度的报名与完成统计
// swagger:model CourseReport
type CourseReport struct {
	CourseID       string  `json:"courseId"`
	Title          string  `json:"title"`
	Enrolled       int     `json:"enrolled"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"inProgress"`
	CompletionRate float64 `json:"completionRate"`
}

// AssessmentReport 单次已判分作答
// swagger:model AssessmentReport
type AssessmentReport struct {
	AttemptID       string `json:"attemptId"`
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	AssessmentID    string `json:"assessmentId"`
	AssessmentTitle string `json:"assessmentTitle"`
	Score           int    `json:"score"`
	IsPassed        bool   `json:"isPassed"`
	Date            string `json:"date"`
}

// ReportSnapshot 定时任务生成的报表快照
type ReportSnapshot struct {
	Courses     []CourseReport     `json:"courses"`
	Assessments []AssessmentReport `json:"assessments"`
	GeneratedAt string             `json:"generatedAt"`
}
