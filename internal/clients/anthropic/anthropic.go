package anthropic

import (
	"codelibre/internal/core"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

const (
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 60 * time.Second
)

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type AnthropicClient struct {
	client sdk.Client
	model  string
}

func NewAnthropicClient(opts Options) *AnthropicClient {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Retries are owned by core.RetryPolicy.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicClient{
		client: sdk.NewClient(reqOpts...),
		model:  model,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

func (c *AnthropicClient) Chat(ctx context.Context, req core.ChatRequest) (string, error) {
	params := c.buildParams(req)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	log.Debug().
		Str("stop_reason", string(msg.StopReason)).
		Int64("input_tokens", msg.Usage.InputTokens).
		Int64("output_tokens", msg.Usage.OutputTokens).
		Msg("Anthropic response")

	return strings.TrimSpace(b.String()), nil
}

// buildParams moves system messages into the top-level system field; the
// messages API only accepts user and assistant turns.
func (c *AnthropicClient) buildParams(req core.ChatRequest) sdk.MessageNewParams {
	model := req.Model
	if model == "" {
		model = c.model
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: sdk.Float(req.Temperature),
	}

	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case core.RoleAssistant:
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return params
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func classify(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to send request: %w", err)
	}

	perr := &core.ProviderError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
	var body errorBody
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &body) == nil {
		perr.Type = body.Error.Type
		perr.Message = body.Error.Message
	}
	return perr
}
