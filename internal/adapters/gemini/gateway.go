// Package gemini implements the relevance gateway on Google Gemini.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/utils"
)

const chunkSize = 8

// Gateway scores message headers with a Gemini generative model.
type Gateway struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGateway creates a Gemini-backed gateway. An empty API key yields an
// unavailable gateway.
func NewGateway(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Gateway, error) {
	g := &Gateway{
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	g.client = client
	g.model = model
	return g, nil
}

// Available reports whether the gateway holds a usable client.
func (g *Gateway) Available() bool { return g.client != nil }

// Close releases the underlying client.
func (g *Gateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Assess scores headers against the criterion, one model call per chunk.
func (g *Gateway) Assess(ctx context.Context, headers []core.MessageHeader, crit core.Criterion) ([]core.RelevanceAssessment, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gemini gateway not configured")
	}

	var assessments []core.RelevanceAssessment
	for start := 0; start < len(headers); start += chunkSize {
		end := start + chunkSize
		if end > len(headers) {
			end = len(headers)
		}
		chunk := headers[start:end]

		prompt := buildAssessmentPrompt(chunk, crit, g.maxBodySize, g.textProcessor)
		resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
		}
		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, fmt.Errorf("empty response from Gemini")
		}
		responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

		part, err := parseAssessmentResponse(responseText, chunk)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, part...)
	}

	g.logger.Debug("Gemini assessment complete",
		zap.Int("headers", len(headers)),
		zap.String("model", g.modelName))
	return assessments, nil
}

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
