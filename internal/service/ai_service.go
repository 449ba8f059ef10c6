package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultQuestionCount = 5
	maxQuestionCount     = 20
	// 发送给模型的源文本上限（字符）
	maxSourceChars = 12000
)

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []AIChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// QuestionDraft 模型返回的题目草稿
type QuestionDraft struct {
	Text        string             `json:"text"`
	Type        model.QuestionType `json:"type"`
	Options     []DraftOption      `json:"options"`
	Explanation string             `json:"explanation"`
}

type DraftOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionGenerator 由源文本生成题目草稿
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, source string, count int) ([]QuestionDraft, error)
}

type AIService struct {
	config config.AIConfig
	client *resty.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &AIService{config: cfg, client: client}
}

// Chat 单轮对话，返回首个 choice 的内容
func (s *AIService) Chat(ctx context.Context, system, prompt string) (string, error) {
	if s.config.BaseURL == "" {
		return "", &util.UpstreamError{Op: "ai chat", Err: fmt.Errorf("ai.base_url is not configured")}
	}

	reqBody := ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
	}

	var result ChatCompletionResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", &util.UpstreamError{Op: "ai chat", Err: err}
	}
	if resp.IsError() {
		msg := resp.String()
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", &util.UpstreamError{Op: "ai chat", Err: fmt.Errorf("status %d: %s", resp.StatusCode(), msg)}
	}
	if len(result.Choices) == 0 {
		return "", &util.UpstreamError{Op: "ai chat", Err: fmt.Errorf("no choices returned")}
	}
	return result.Choices[0].Message.Content, nil
}

const questionSystemPrompt = "You write assessment questions for corporate training. " +
	"Answer with JSON only: an array of objects with fields " +
	`"text", "type" ("single-choice" | "multiple-choice" | "true-false"), ` +
	`"options" (array of {"text", "isCorrect"}) and "explanation". ` +
	"single-choice and true-false questions have exactly one correct option; " +
	`true-false questions have exactly two options "True" and "False".`

func (s *AIService) GenerateQuestions(ctx context.Context, source string, count int) ([]QuestionDraft, error) {
	if count <= 0 {
		count = defaultQuestionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%w: source content is empty", util.ErrValidation)
	}
	if r := []rune(source); len(r) > maxSourceChars {
		source = string(r[:maxSourceChars])
	}

	prompt := fmt.Sprintf("Create %d questions based on the following training material:\n\n%s", count, source)
	raw, err := s.Chat(ctx, questionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	drafts, err := ParseQuestionDrafts(raw)
	if err != nil {
		logger.Log.Warn("AI returned unparseable questions", zap.Error(err), zap.Int("length", len(raw)))
		return nil, &util.UpstreamError{Op: "parse ai questions", Err: err}
	}
	return drafts, nil
}

// ParseQuestionDrafts 解析模型输出；兼容 ```json 代码块包裹以及 {"questions": [...]} 形式
func ParseQuestionDrafts(raw string) ([]QuestionDraft, error) {
	text := stripCodeFence(raw)

	var drafts []QuestionDraft
	if err := json.Unmarshal([]byte(text), &drafts); err == nil {
		return drafts, nil
	}

	var wrapped struct {
		Questions []QuestionDraft `json:"questions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Questions, nil
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
