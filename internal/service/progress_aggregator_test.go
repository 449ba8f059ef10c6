package service

import (
	"testing"

	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lesson(id string) model.Lesson {
	return model.Lesson{Entity: model.Entity{ID: id}, Title: id, Type: model.LessonText}
}

func twoByTwoCourse() *model.Course {
	c := &model.Course{
		Entity: model.Entity{ID: "course"},
		Modules: []model.Module{
			{Entity: model.Entity{ID: "A"}, Lessons: []model.Lesson{lesson("a1"), lesson("a2")}},
			{Entity: model.Entity{ID: "B"}, Lessons: []model.Lesson{lesson("b1"), lesson("b2")}},
		},
	}
	Recompute(c)
	return c
}

func TestMarkLessonCompleteRollsUp(t *testing.T) {
	c := twoByTwoCourse()
	assert.Equal(t, model.NotStarted(), c.Progress)

	c, err := MarkLessonComplete(c, "A", "a1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, c.Modules[0].ProgressPercentage)
	assert.Equal(t, 0.0, c.Modules[1].ProgressPercentage)
	assert.Equal(t, 25.0, c.ProgressPercentage)
	assert.False(t, c.Completed)
	assert.Equal(t, model.InProgress(25), c.Progress)

	for _, step := range [][2]string{{"A", "a2"}, {"B", "b1"}, {"B", "b2"}} {
		c, err = MarkLessonComplete(c, step[0], step[1])
		require.NoError(t, err)
	}
	assert.True(t, c.Completed)
	assert.Equal(t, 100.0, c.ProgressPercentage)
	assert.True(t, c.Modules[0].Completed)
	assert.True(t, c.Modules[1].Completed)
	assert.Equal(t, model.Completed(), c.Progress)
}

func TestMarkLessonCompleteIsIdempotent(t *testing.T) {
	c, err := MarkLessonComplete(twoByTwoCourse(), "A", "a1")
	require.NoError(t, err)

	again, err := MarkLessonComplete(c, "A", "a1")
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestMarkLessonCompleteIsCopyOnWrite(t *testing.T) {
	orig := twoByTwoCourse()
	next, err := MarkLessonComplete(orig, "B", "b2")
	require.NoError(t, err)

	assert.NotSame(t, orig, next)
	assert.False(t, orig.Modules[1].Lessons[1].Completed)
	assert.Zero(t, orig.ProgressPercentage)
	assert.True(t, next.Modules[1].Lessons[1].Completed)
}

func TestMarkLessonCompleteUnknownIDs(t *testing.T) {
	orig := twoByTwoCourse()
	snapshot := orig.Clone()

	tests := []struct {
		name, module, lesson, kind string
	}{
		{"unknown module", "Z", "a1", "module"},
		{"unknown lesson", "A", "zz", "lesson"},
		{"lesson from another module", "A", "b1", "lesson"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarkLessonComplete(orig, tt.module, tt.lesson)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, util.ErrNotFound)
			assert.Equal(t, tt.kind, util.NotFoundKind(err))
			assert.Equal(t, snapshot, orig)
		})
	}
}

func TestRecomputeZeroLessonCourse(t *testing.T) {
	c := &model.Course{Modules: []model.Module{{Entity: model.Entity{ID: "empty"}}}}
	Recompute(c)

	assert.Zero(t, c.ProgressPercentage)
	assert.False(t, c.Completed)
	assert.False(t, c.Modules[0].Completed)
	assert.Equal(t, model.NotStarted(), c.Progress)
}

func TestRecomputeThirds(t *testing.T) {
	c := &model.Course{Modules: []model.Module{{
		Entity:  model.Entity{ID: "m"},
		Lessons: []model.Lesson{lesson("x"), lesson("y"), lesson("z")},
	}}}
	ApplyCompletions(c, map[string]bool{"x": true})

	assert.InDelta(t, 100.0/3, c.Modules[0].ProgressPercentage, 1e-9)
	assert.Greater(t, c.Modules[0].ProgressPercentage, 33.33)
	assert.False(t, c.Modules[0].Completed)
}
