// Package llmclient wraps the Anthropic API behind a narrow, task-typed
// surface: callers pick a TaskType, not a model name, and the client routes
// to the configured tier.
package llmclient

import (
	"context"
	"errors"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mkhale/researchctl/internal/errs"
	"github.com/mkhale/researchctl/internal/retry"
	"github.com/mkhale/researchctl/internal/telemetry"
)

// ModelTier is one of the three routing tiers a TaskType maps to.
type ModelTier string

const (
	TierSmall   ModelTier = "small"
	TierBalance ModelTier = "balanced"
	TierLarge   ModelTier = "large"
)

// TaskType identifies the kind of call a caller is making, used to select a tier.
type TaskType string

const (
	TaskExtraction TaskType = "extraction"
	TaskDrafting   TaskType = "drafting"
	TaskReview     TaskType = "review"
	TaskSynthesis  TaskType = "synthesis"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Tiers maps a TaskType to the ModelTier it routes through by default.
var Tiers = map[TaskType]ModelTier{
	TaskExtraction: TierSmall,
	TaskDrafting:   TierBalance,
	TaskReview:     TierLarge,
	TaskSynthesis:  TierLarge,
}

// Client is a tiered, token-accounting wrapper over the Anthropic SDK.
type Client struct {
	sdk          anthropic.Client
	modelByTier  map[ModelTier]string
	retryPolicy  retry.Policy
	mu           sync.Mutex
	tokensUsed   int
	callsByTier  map[ModelTier]int
}

// Config names the concrete model backing each tier.
type Config struct {
	APIKey        string
	SmallModel    string
	BalancedModel string
	LargeModel    string
}

// New constructs a Client. The SDK client itself is cheap to construct even
// when APIKey is empty; calls will fail with errs.Auth at request time.
func New(cfg Config) *Client {
	return &Client{
		sdk: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		modelByTier: map[ModelTier]string{
			TierSmall:   cfg.SmallModel,
			TierBalance: cfg.BalancedModel,
			TierLarge:   cfg.LargeModel,
		},
		retryPolicy: retry.DefaultPolicy(),
		callsByTier: make(map[ModelTier]int),
	}
}

func toSDKMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

func classifyTransportErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return errs.Wrap(errs.Auth, err)
		case apiErr.StatusCode >= 500 || apiErr.StatusCode == 429:
			return errs.Wrap(errs.Transport, err)
		default:
			return err
		}
	}
	return errs.Wrap(errs.Transport, err)
}

// Chat sends a standard, non-thinking completion request for taskType and
// returns the assistant's text and the tokens consumed.
func (c *Client) Chat(ctx context.Context, messages []Message, system string, taskType TaskType) (string, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.chat")
	defer span.End()

	tier := Tiers[taskType]
	if tier == "" {
		tier = TierBalance
	}
	model := c.modelByTier[tier]
	telemetry.SafeSetAttributes(span, attribute.String("llm.tier", string(tier)), attribute.String("llm.task_type", string(taskType)))

	var text string
	var tokens int

	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 4096,
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: toSDKMessages(messages),
		})
		if err != nil {
			return classifyTransportErr(err)
		}
		text = concatText(msg)
		tokens = int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	c.mu.Lock()
	c.tokensUsed += tokens
	c.callsByTier[tier]++
	c.mu.Unlock()

	return text, tokens, nil
}

// ChatWithThinking sends an extended-reasoning request and returns both the
// thinking trace and the final text.
func (c *Client) ChatWithThinking(ctx context.Context, messages []Message, system string, tier ModelTier, maxTokens, budgetTokens int) (string, string, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "llm.chat_with_thinking")
	defer span.End()
	telemetry.SafeSetAttributes(span, attribute.String("llm.tier", string(tier)))

	model := c.modelByTier[tier]
	if model == "" {
		model = c.modelByTier[TierLarge]
	}

	var thinking, text string
	var tokens int

	err := retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		msg, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: system},
			},
			Messages: toSDKMessages(messages),
			Thinking: anthropic.ThinkingConfigParamOfEnabled(int64(budgetTokens)),
		})
		if err != nil {
			return classifyTransportErr(err)
		}
		thinking = concatThinking(msg)
		text = concatText(msg)
		tokens = int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
		return nil
	})
	if err != nil {
		return "", "", 0, err
	}

	c.mu.Lock()
	c.tokensUsed += tokens
	c.callsByTier[tier]++
	c.mu.Unlock()

	return thinking, text, tokens, nil
}

func concatText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += tb.Text
		}
	}
	return out
}

func concatThinking(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.ThinkingBlock); ok {
			out += tb.Thinking
		}
	}
	return out
}

// CostSummary is the accumulated token usage for this client instance since
// construction.
type CostSummary struct {
	TokensUsed  int
	CallsByTier map[ModelTier]int
}

// CostSummary returns a snapshot of accumulated usage.
func (c *Client) CostSummary() CostSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	byTier := make(map[ModelTier]int, len(c.callsByTier))
	for k, v := range c.callsByTier {
		byTier[k] = v
	}
	return CostSummary{TokensUsed: c.tokensUsed, CallsByTier: byTier}
}
