// Package openai implements the relevance gateway on the OpenAI chat API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/utils"
)

// chunkSize bounds how many headers go into one model request.
const chunkSize = 8

// Gateway scores message headers with an OpenAI chat model.
type Gateway struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGateway creates an OpenAI-backed gateway. An empty API key yields an
// unavailable gateway so callers take the keyword fallback.
func NewGateway(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Gateway {
	g := &Gateway{
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	return g
}

// Available reports whether the gateway holds a usable client.
func (g *Gateway) Available() bool { return g.client != nil }

// Assess scores headers against the criterion, one model call per chunk.
func (g *Gateway) Assess(ctx context.Context, headers []core.MessageHeader, crit core.Criterion) ([]core.RelevanceAssessment, error) {
	if g.client == nil {
		return nil, fmt.Errorf("openai gateway not configured")
	}

	var assessments []core.RelevanceAssessment
	for start := 0; start < len(headers); start += chunkSize {
		end := start + chunkSize
		if end > len(headers) {
			end = len(headers)
		}
		chunk := headers[start:end]

		prompt := buildAssessmentPrompt(chunk, crit, g.maxBodySize, g.textProcessor)
		req := openai.ChatCompletionRequest{
			Model: g.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are a UseNet message relevance scorer. Respond only with JSON.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			TopP:        g.topP,
		}

		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("empty response from OpenAI")
		}

		part, err := parseAssessmentResponse(resp.Choices[0].Message.Content, chunk)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, part...)
	}

	g.logger.Debug("OpenAI assessment complete",
		zap.Int("headers", len(headers)),
		zap.String("model", g.modelName))
	return assessments, nil
}

// assessmentResponse is the structured verdict the model is asked for.
type assessmentResponse struct {
	MessageID  string  `json:"message_id"`
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func buildAssessmentPrompt(headers []core.MessageHeader, crit core.Criterion, maxBodySize int, tp *utils.TextProcessor) string {
	var b strings.Builder
	b.WriteString("You are scoring UseNet message headers for relevance.\n")
	switch {
	case crit.Poster != "" && crit.Topic != "":
		fmt.Fprintf(&b, "Criterion: messages posted by %q that discuss the topic %q.\n", crit.Poster, crit.Topic)
	case crit.Poster != "":
		fmt.Fprintf(&b, "Criterion: messages posted by %q (the From field may use aliases or addresses of that poster).\n", crit.Poster)
	default:
		fmt.Fprintf(&b, "Criterion: messages that discuss the topic %q.\n", crit.Topic)
	}
	b.WriteString(`Respond with a JSON array, one object per message in the same order:
[{"message_id": string, "match": bool, "confidence": number 0..1, "reasoning": string}]

Messages:
`)
	for i, h := range headers {
		fmt.Fprintf(&b, "%d. Message-ID: %s | Group: %s | From: %s | Subject: %s\n",
			i+1, h.MessageID, h.Group, h.From, h.Subject)
		if crit.WithBody && h.Body != "" {
			fmt.Fprintf(&b, "   Body: %s\n", tp.ProcessText(h.Body, maxBodySize))
		}
	}
	b.WriteString("\nRespond only with the JSON array and nothing else.")
	return b.String()
}

// parseAssessmentResponse extracts the JSON array from the model output,
// tolerating prose around it, and fills in message IDs by position when the
// model omitted them.
func parseAssessmentResponse(text string, headers []core.MessageHeader) ([]core.RelevanceAssessment, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON array from model response")
	}

	var parsed []assessmentResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("model response contained no assessments")
	}

	assessments := make([]core.RelevanceAssessment, 0, len(parsed))
	for i, p := range parsed {
		id := p.MessageID
		if id == "" && i < len(headers) {
			id = headers[i].MessageID
		}
		assessments = append(assessments, core.RelevanceAssessment{
			MessageID:  id,
			Match:      p.Match,
			Confidence: p.Confidence,
			Reasoning:  p.Reasoning,
		})
	}
	return assessments, nil
}
