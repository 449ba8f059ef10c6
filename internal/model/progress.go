package model

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ProgressState 区分“尚无数据”和“进度为 0”，Percentage 仅在 InProgress 时有意义
// swagger:model ProgressState
type ProgressState struct {
	Status     ProgressStatus `json:"status"`
	Percentage float64        `json:"percentage"`
}

func NotStarted() ProgressState {
	return ProgressState{Status: ProgressNotStarted}
}

func InProgress(pct float64) ProgressState {
	return ProgressState{Status: ProgressInProgress, Percentage: pct}
}

func Completed() ProgressState {
	return ProgressState{Status: ProgressCompleted, Percentage: 100}
}

// ProgressFromCounts 完成判定只看计数是否相等，不依赖浮点百分比
func ProgressFromCounts(completed, total int) ProgressState {
	switch {
	case total > 0 && completed >= total:
		return Completed()
	case completed <= 0:
		return NotStarted()
	default:
		return InProgress(Percentage(completed, total))
	}
}

// Percentage 完成百分比，不做取整（展示层负责格式化），total 为 0 时返回 0
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) * 100 / float64(total)
}

func (p ProgressState) IsCompleted() bool {
	return p.Status == ProgressCompleted
}
