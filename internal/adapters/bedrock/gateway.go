// Package bedrock implements the relevance gateway on Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
	"github.com/mikey/usenet-explorer/internal/utils"
)

const chunkSize = 8

// Gateway scores message headers with a Bedrock-hosted model.
type Gateway struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGateway creates a Bedrock-backed gateway. A nil client yields an
// unavailable gateway.
func NewGateway(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Gateway {
	return &Gateway{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Available reports whether the gateway holds a usable client.
func (g *Gateway) Available() bool { return g.client != nil }

// Assess scores headers against the criterion, one model call per chunk.
func (g *Gateway) Assess(ctx context.Context, headers []core.MessageHeader, crit core.Criterion) ([]core.RelevanceAssessment, error) {
	if g.client == nil {
		return nil, fmt.Errorf("bedrock gateway not configured")
	}

	var assessments []core.RelevanceAssessment
	for start := 0; start < len(headers); start += chunkSize {
		end := start + chunkSize
		if end > len(headers) {
			end = len(headers)
		}
		chunk := headers[start:end]

		prompt := buildAssessmentPrompt(chunk, crit, g.maxBodySize, g.textProcessor)
		responseText, err := g.invoke(ctx, prompt)
		if err != nil {
			return nil, err
		}

		part, err := parseAssessmentResponse(responseText, chunk)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, part...)
	}

	g.logger.Debug("Bedrock assessment complete",
		zap.Int("headers", len(headers)),
		zap.String("model", g.modelID))
	return assessments, nil
}

func (g *Gateway) invoke(ctx context.Context, prompt string) (string, error) {
	var payload []byte
	var err error

	if g.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": g.maxTokens,
			"temperature":          g.temperature,
			"top_p":                g.topP,
		})
	} else if g.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": g.maxTokens,
				"temperature":   g.temperature,
				"topP":          g.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  g.maxTokens,
			"temperature": g.temperature,
			"top_p":       g.topP,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &g.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	if g.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if g.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(resp.Body), nil
	}
}

func (g *Gateway) isAnthropicModel() bool {
	return strings.HasPrefix(g.modelID, "anthropic.claude")
}

func (g *Gateway) isAmazonTitanModel() bool {
	return strings.HasPrefix(g.modelID, "amazon.titan")
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
