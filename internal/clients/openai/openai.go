package openai

import (
	"codelibre/internal/clients/common"
	"codelibre/internal/core"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
)

type OpenAIClient struct {
	model   string
	baseURL string
	client  *http.Client
	config  common.ClientConfig
}

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Config  common.ClientConfig
}

func NewOpenAIClient(opts Options) *OpenAIClient {
	clientConfig := opts.Config
	if clientConfig.Timeout == 0 {
		clientConfig = common.DefaultConfig()
	}
	clientConfig.Headers = map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + opts.APIKey,
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &OpenAIClient{
		model:   model,
		baseURL: baseURL,
		client:  common.NewHTTPClient(clientConfig),
		config:  clientConfig,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *openaiError `json:"error"`
}

type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func toChatMessages(messages []core.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		role := "user"
		switch m.Role {
		case core.RoleSystem:
			role = "system"
		case core.RoleAssistant:
			role = "assistant"
		}
		out = append(out, chatMessage{Role: role, Content: m.Content})
	}
	return out
}

func (c *OpenAIClient) handleResponse(status int, body []byte) (*openaiResponse, error) {
	var response openaiResponse
	jsonErr := json.Unmarshal(body, &response)

	if status != http.StatusOK {
		perr := &core.ProviderError{Provider: c.Name(), StatusCode: status, Message: string(body)}
		if jsonErr == nil && response.Error != nil {
			perr.Type = response.Error.Type
			perr.Message = response.Error.Message
		}
		return nil, perr
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", jsonErr)
	}
	if response.Error != nil {
		return nil, &core.ProviderError{Provider: c.Name(), StatusCode: status, Type: response.Error.Type, Message: response.Error.Message}
	}
	return &response, nil
}

func (c *OpenAIClient) Chat(ctx context.Context, req core.ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := chatRequest{
		Model:       model,
		Messages:    toChatMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	status, body, err := common.PostJSON(ctx, c.client, c.baseURL+"/chat/completions", payload, c.config)
	if err != nil {
		return "", err
	}
	log.Debug().Int("status", status).Int("bytes", len(body)).Msg("OpenAI response")

	response, err := c.handleResponse(status, body)
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
