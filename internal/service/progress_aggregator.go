package service

import (
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"
)

// MarkLessonComplete 在课程副本上标记课时完成并自底向上重算进度。
// 解析失败时返回 NotFoundError（Kind 指明失败层级），原课程不被修改；
// 成功时返回新的课程对象，调用方整体替换，读者不会看到中间状态。
func MarkLessonComplete(course *model.Course, moduleID, lessonID string) (*model.Course, error) {
	if course == nil {
		return nil, util.NewNotFound("course", "")
	}
	module, ok := course.FindModule(moduleID)
	if !ok {
		return nil, util.NewNotFound("module", moduleID)
	}
	if _, ok := module.FindLesson(lessonID); !ok {
		return nil, util.NewNotFound("lesson", lessonID)
	}

	next := course.Clone()
	m, _ := next.FindModule(moduleID)
	l, _ := m.FindLesson(lessonID)
	l.Completed = true
	Recompute(next)
	return next, nil
}

// Recompute 依据课时完成标记重算模块与课程的派生字段（原地修改）
func Recompute(course *model.Course) {
	completed, total := 0, 0
	for i := range course.Modules {
		m := &course.Modules[i]
		done := m.CompletedLessons()
		n := len(m.Lessons)
		m.ProgressPercentage = model.Percentage(done, n)
		m.Completed = n > 0 && done == n
		m.Progress = model.ProgressFromCounts(done, n)
		completed += done
		total += n
	}
	course.ProgressPercentage = model.Percentage(completed, total)
	course.Completed = total > 0 && completed == total
	course.Progress = model.ProgressFromCounts(completed, total)
}

// ApplyCompletions 按已完成课时集合叠加学员视角的完成标记并重算
func ApplyCompletions(course *model.Course, completedLessons map[string]bool) {
	for i := range course.Modules {
		m := &course.Modules[i]
		for j := range m.Lessons {
			m.Lessons[j].Completed = completedLessons[m.Lessons[j].ID]
		}
	}
	Recompute(course)
}
