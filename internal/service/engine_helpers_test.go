package service

import (
	"sync"
	"time"

	"corp_learning_backend/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// firstShuffler 总是选择下标 0，使 Fisher–Yates 得到确定的排列
type firstShuffler struct{}

func (firstShuffler) Intn(int) int { return 0 }

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

func singleChoice(id string, correct string, ids ...string) model.Question {
	q := model.Question{Entity: model.Entity{ID: id}, Text: id, Type: model.SingleChoice}
	for _, o := range ids {
		q.Options = append(q.Options, model.Option{ID: o, Text: o, IsCorrect: o == correct})
	}
	return q
}

func multipleChoice(id string, correct []string, ids ...string) model.Question {
	set := map[string]bool{}
	for _, c := range correct {
		set[c] = true
	}
	q := model.Question{Entity: model.Entity{ID: id}, Text: id, Type: model.MultipleChoice}
	for _, o := range ids {
		q.Options = append(q.Options, model.Option{ID: o, Text: o, IsCorrect: set[o]})
	}
	return q
}

func testAssessment(total, timeLimit, passing int, shuffle bool) model.Assessment {
	return model.Assessment{
		Entity:           model.Entity{ID: "assessment-t"},
		Title:            "Test",
		TimeLimit:        timeLimit,
		PassingScore:     passing,
		TotalQuestions:   total,
		ShuffleQuestions: shuffle,
	}
}

func threeQuestionPool() []model.Question {
	return []model.Question{
		singleChoice("q1", "a", "a", "b"),
		singleChoice("q2", "c", "c", "d"),
		multipleChoice("q3", []string{"e", "f"}, "e", "f", "g"),
	}
}

func questionIDs(qs []model.LearnerQuestion) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
