package triage

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type chatCompletionAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAILLMClient implements LLMClient on top of the OpenAI chat API.
type OpenAILLMClient struct {
	api chatCompletionAPI
}

// NewOpenAILLMClient wraps an OpenAI client.
func NewOpenAILLMClient(api chatCompletionAPI) *OpenAILLMClient {
	if api == nil {
		panic("triage: openai client cannot be nil")
	}
	return &OpenAILLMClient{api: api}
}

// NewOpenAILLMClientFromKey builds a client from an API key.
func NewOpenAILLMClientFromKey(apiKey string) (*OpenAILLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("triage: openai api key is required")
	}
	return &OpenAILLMClient{api: openai.NewClient(apiKey)}, nil
}

func (c *OpenAILLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return LLMResponse{}, errors.New("triage: openai model id is required")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	// The o1 family rejects system messages; fold them into the first user turn.
	reasoningModel := strings.HasPrefix(req.Model, "o1")
	var systemText string
	for _, block := range req.System {
		if strings.TrimSpace(block) == "" {
			continue
		}
		if reasoningModel {
			systemText += block + "\n\n"
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: block,
		})
	}
	for i, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if reasoningModel && i == 0 && msg.Role == ChatRoleUser && systemText != "" {
			content = systemText + content
			systemText = ""
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: content,
		})
	}
	if len(messages) == 0 {
		return LLMResponse{}, errors.New("triage: openai requires at least one message")
	}

	request := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if !reasoningModel {
		if req.MaxTokens > 0 {
			request.MaxTokens = int(req.MaxTokens)
		}
		if req.Temperature >= 0 {
			request.Temperature = req.Temperature
		}
	} else if req.MaxTokens > 0 {
		request.MaxCompletionTokens = int(req.MaxTokens)
	}

	resp, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return LLMResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("triage: openai returned no choices")
	}

	return LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}
