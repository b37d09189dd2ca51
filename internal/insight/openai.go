package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/churnsight/backend/pkg/circuitbreaker"
	"github.com/churnsight/backend/pkg/logger"
	"github.com/churnsight/backend/pkg/retry"
)

const systemPrompt = `You are a customer success analyst. You evaluate SaaS customer behavior and estimate churn risk. Respond with a single JSON object and nothing else.`

// OpenAIProvider asks a chat model to judge churn risk from normalized
// behavior metrics.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIProvider(apiKey, model string, temperature float32, maxTokens int, timeout time.Duration, maxRetries int) *OpenAIProvider {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("insight", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    maxRetries,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Insight provider initialized",
		zap.String("model", model),
		zap.Duration("timeout", timeout),
	)

	return &OpenAIProvider{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Analyze holds the entire call, retries included, to the configured timeout.
func (p *OpenAIProvider) Analyze(ctx context.Context, in Input) (*Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: buildAnalysisPrompt(in),
		},
	}

	var content string

	err := p.cb.Execute(ctx, func() error {
		return retry.Do(ctx, p.retryConfig, func() error {
			resp, err := p.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       p.model,
					Messages:    messages,
					Temperature: p.temperature,
					MaxTokens:   p.maxTokens,
				},
			)
			if err != nil {
				return err
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("empty completion")
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		logger.Warn("Insight provider call failed",
			zap.String("customer_id", in.CustomerID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	parsed, err := ParseInsight(content)
	if err != nil {
		logger.Warn("Insight response rejected",
			zap.String("customer_id", in.CustomerID),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Debug("Insight received",
		zap.String("customer_id", in.CustomerID),
		zap.Float64("score", parsed.Score),
		zap.String("risk_level", parsed.RiskLevel),
	)

	return parsed, nil
}

func buildAnalysisPrompt(in Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze churn risk for this customer.\n\n")
	fmt.Fprintf(&b, "Customer: %s (%s)\n", in.CompanyName, in.CustomerID)
	fmt.Fprintf(&b, "Subscription tier: %s\n", in.Tier)
	fmt.Fprintf(&b, "Monthly value: $%.2f\n", in.MonthlyValue)
	fmt.Fprintf(&b, "Tenure: %.1f months\n\n", in.TenureMonths)

	m := in.Metrics
	fmt.Fprintf(&b, "Normalized behavior metrics over the recent window (0-1 unless noted):\n")
	fmt.Fprintf(&b, "- engagement_score: %.3f\n", m.EngagementScore)
	fmt.Fprintf(&b, "- login_frequency: %.3f\n", m.LoginFrequency)
	fmt.Fprintf(&b, "- feature_usage: %.3f\n", m.FeatureUsage)
	fmt.Fprintf(&b, "- email_open_rate: %.3f\n", m.EmailOpenRate)
	fmt.Fprintf(&b, "- support_ticket_rate: %.3f\n", m.SupportTicketRate)
	fmt.Fprintf(&b, "- payment_issues: %.3f\n", m.PaymentIssues)
	fmt.Fprintf(&b, "- sentiment_score (-1 to 1): %.3f\n", m.SentimentScore)
	fmt.Fprintf(&b, "- login_trend (-1 to 1): %.3f\n", m.LoginTrend)
	fmt.Fprintf(&b, "- feature_trend (-1 to 1): %.3f\n", m.FeatureTrend)
	fmt.Fprintf(&b, "- engagement_trend (-1 to 1): %.3f\n\n", m.EngagementTrend)

	if len(in.SimilarChurned) > 0 {
		fmt.Fprintf(&b, "Historically similar customers who churned:\n")
		for _, match := range in.SimilarChurned {
			fmt.Fprintf(&b, "- %s (similarity %.2f): churned after %d days, reason: %s\n",
				match.CompanyName, match.Similarity, match.DaysUntilChurned, match.ChurnReason)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, `Respond with exactly this JSON structure:
{
  "churn_risk_score": <number 0-100>,
  "risk_level": "<low|medium|high|critical>",
  "key_concerns": ["<1 to 5 specific concerns>"],
  "recommended_actions": ["<1 to 5 specific actions>"],
  "predicted_churn_date": "<YYYY-MM-DD or null>",
  "confidence": "<low|medium|high>"
}`)

	return b.String()
}
