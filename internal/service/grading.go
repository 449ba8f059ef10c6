package service

import (
	"fmt"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"
)

// GradeQuestion 单选/判断题要求恰好选中唯一正确项；多选题要求选中集合与正确集合完全一致。
// 未作答（selected 为空）一律判错。
func GradeQuestion(q *model.Question, selected []string) bool {
	if len(selected) == 0 {
		return false
	}
	correct := q.CorrectOptionIDs()
	switch q.Type {
	case model.MultipleChoice:
		return sameOptionSet(selected, correct)
	default:
		return len(selected) == 1 && len(correct) == 1 && selected[0] == correct[0]
	}
}

// sameOptionSet 集合比较；selected 中的重复项视为错误答案
func sameOptionSet(selected, correct []string) bool {
	if len(selected) != len(correct) {
		return false
	}
	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	if len(set) != len(correct) {
		return false
	}
	for _, id := range correct {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// ComputeScore 四舍五入（.5 向上）到整数百分比；题目数为 0 时得 0 分
func ComputeScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// ValidateQuestion 校验题目定义：类型合法、选项 ID 唯一，
// 单选/判断恰好一个正确项，多选至少一个正确项。
func ValidateQuestion(q *model.Question) error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", util.ErrInvalidQuestion)
	}
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown question type %q", util.ErrInvalidQuestion, q.Type)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: at least two options are required", util.ErrInvalidQuestion)
	}
	if q.Type == model.TrueFalse && len(q.Options) != 2 {
		return fmt.Errorf("%w: true-false questions have exactly two options", util.ErrInvalidQuestion)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if o.ID == "" {
			return fmt.Errorf("%w: option id is required", util.ErrInvalidQuestion)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("%w: duplicate option id %q", util.ErrInvalidQuestion, o.ID)
		}
		seen[o.ID] = struct{}{}
	}
	n := len(q.CorrectOptionIDs())
	switch q.Type {
	case model.MultipleChoice:
		if n < 1 {
			return fmt.Errorf("%w: multiple-choice needs at least one correct option", util.ErrInvalidQuestion)
		}
	default:
		if n != 1 {
			return fmt.Errorf("%w: %s needs exactly one correct option, got %d", util.ErrInvalidQuestion, q.Type, n)
		}
	}
	return nil
}
