package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const draftsJSON = `[
  {"text": "What does HTTP 404 mean?", "type": "single-choice",
   "options": [{"text": "Not Found", "isCorrect": true}, {"text": "Forbidden"}],
   "explanation": "404 is Not Found."},
  {"text": "TLS encrypts traffic", "type": "true-false",
   "options": [{"text": "True", "isCorrect": true}, {"text": "False"}]},
  {"text": "Broken", "type": "single-choice",
   "options": [{"text": "only one", "isCorrect": true}]}
]`

// newChatServer 模拟 chat/completions 接口，返回固定内容并记录请求
func newChatServer(t *testing.T, content string, status int) (*httptest.Server, *ChatCompletionRequest) {
	t.Helper()
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "quota exceeded"}})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestAI(url string) *AIService {
	return NewAIService(config.AIConfig{BaseURL: url, APIKey: "test-key", Model: "test-model"})
}

func TestParseQuestionDrafts(t *testing.T) {
	drafts, err := ParseQuestionDrafts(draftsJSON)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
	assert.Equal(t, model.TrueFalse, drafts[1].Type)

	fenced := "```json\n{\"questions\": " + draftsJSON + "}\n```"
	drafts, err = ParseQuestionDrafts(fenced)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
	assert.True(t, drafts[0].Options[0].IsCorrect)

	_, err = ParseQuestionDrafts("Sorry, I can't help with that.")
	assert.Error(t, err)
}

func TestAIService_GenerateQuestions(t *testing.T) {
	srv, got := newChatServer(t, draftsJSON, http.StatusOK)
	ai := newTestAI(srv.URL)

	drafts, err := ai.GenerateQuestions(context.Background(), "HTTP status codes and TLS basics", 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 3)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.True(t, strings.HasPrefix(got.Messages[1].Content, "Create 5 questions"))
}

func TestAIService_CapsCountAndSource(t *testing.T) {
	srv, got := newChatServer(t, draftsJSON, http.StatusOK)
	ai := newTestAI(srv.URL)

	long := strings.Repeat("x", maxSourceChars+500)
	_, err := ai.GenerateQuestions(context.Background(), long, 100)
	require.NoError(t, err)

	prompt := got.Messages[1].Content
	assert.True(t, strings.HasPrefix(prompt, "Create 20 questions"))
	assert.Equal(t, maxSourceChars, strings.Count(prompt, "x"))
}

func TestAIService_Errors(t *testing.T) {
	srv, _ := newChatServer(t, "", http.StatusTooManyRequests)
	_, err := newTestAI(srv.URL).GenerateQuestions(context.Background(), "material", 3)
	require.ErrorIs(t, err, util.ErrUpstream)
	assert.Contains(t, err.Error(), "quota exceeded")

	srv, _ = newChatServer(t, "not json", http.StatusOK)
	_, err = newTestAI(srv.URL).GenerateQuestions(context.Background(), "material", 3)
	require.ErrorIs(t, err, util.ErrUpstream)

	_, err = newTestAI("").GenerateQuestions(context.Background(), "material", 3)
	require.ErrorIs(t, err, util.ErrUpstream)

	_, err = newTestAI("http://unused").GenerateQuestions(context.Background(), "   ", 3)
	require.ErrorIs(t, err, util.ErrValidation)
}
