// Package keyword implements the deterministic fallback relevance gateway:
// plain substring and word matching, always available, never failing.
package keyword

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// FallbackConfidence is attached to every keyword match; deliberately
// lower than what a model-backed gateway reports for a clear match.
const FallbackConfidence = 0.5

// FallbackReasoning marks assessments produced by this gateway.
const FallbackReasoning = "fallback: keyword match"

// Gateway scores headers without any model: poster queries match as
// case-insensitive substrings of the sender, topic queries as word hits
// against subject (and body when present).
type Gateway struct {
	logger *zap.Logger
}

// NewGateway creates the fallback gateway.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{logger: logger}
}

// Available always reports true; this gateway is the degradation floor.
func (g *Gateway) Available() bool { return true }

// Assess returns one assessment per header, deterministic and in order.
func (g *Gateway) Assess(ctx context.Context, headers []core.MessageHeader, crit core.Criterion) ([]core.RelevanceAssessment, error) {
	poster := strings.ToLower(strings.TrimSpace(crit.Poster))
	topicWords := strings.Fields(strings.ToLower(crit.Topic))

	assessments := make([]core.RelevanceAssessment, 0, len(headers))
	for _, h := range headers {
		match := true
		if poster != "" && !strings.Contains(strings.ToLower(h.From), poster) {
			match = false
		}
		if match && len(topicWords) > 0 {
			text := strings.ToLower(h.Subject)
			if crit.WithBody && h.Body != "" {
				text += " " + strings.ToLower(h.Body)
			}
			hits := 0
			for _, w := range topicWords {
				if strings.Contains(text, w) {
					hits++
				}
			}
			match = hits > 0
		}

		a := core.RelevanceAssessment{
			MessageID: h.MessageID,
			Match:     match,
			Reasoning: FallbackReasoning,
		}
		if match {
			a.Confidence = FallbackConfidence
		}
		assessments = append(assessments, a)
	}

	g.logger.Debug("Keyword assessment complete",
		zap.Int("headers", len(headers)),
		zap.String("poster", crit.Poster),
		zap.String("topic", crit.Topic))
	return assessments, nil
}

// Describe summarizes the criterion, used in log lines by callers.
func Describe(crit core.Criterion) string {
	switch {
	case crit.Poster != "" && crit.Topic != "":
		return fmt.Sprintf("poster %q about %q", crit.Poster, crit.Topic)
	case crit.Poster != "":
		return fmt.Sprintf("poster %q", crit.Poster)
	default:
		return fmt.Sprintf("topic %q", crit.Topic)
	}
}
