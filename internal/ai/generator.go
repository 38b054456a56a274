// Package ai generates reply text with Gemini. The selector treats every
// failure here as non-fatal and falls back to a deterministic reply, so
// this package never blocks dispatch.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"social-automator-api/internal/apperr"

	"google.golang.org/genai"
)

const systemPrompt = `You write short, friendly public replies to social media comments
on behalf of a brand account. Reply in the language of the comment. Keep it
to one or two sentences, no hashtags, no emoji spam, and never promise
anything the comment did not ask about.`

// Generator produces a reply for a matched comment.
type Generator interface {
	Generate(ctx context.Context, commentText, keyword string) (string, error)
}

// GeminiGenerator calls the Gemini API with a model fallback list: when a
// model is throttled or missing, the next one is tried.
type GeminiGenerator struct {
	client *genai.Client
	models []string
}

// NewGeminiGenerator creates the generator from GEMINI_API_KEY.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		models: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"},
	}, nil
}

// Generate produces one reply for the comment.
func (g *GeminiGenerator) Generate(ctx context.Context, commentText, keyword string) (string, error) {
	prompt := fmt.Sprintf(`%s

The comment below mentioned the keyword %q. Write the reply text only, no
quotes and no JSON.

Comment: %s`, systemPrompt, keyword, commentText)

	var lastErr error
	for _, model := range g.models {
		result, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			errStr := strings.ToLower(err.Error())
			if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
				strings.Contains(errStr, "exhausted") || strings.Contains(errStr, "not found") {
				lastErr = err
				continue
			}
			return "", apperr.Wrap(apperr.KindAIGenerationFailed, "gemini request failed", err)
		}

		if result != nil && len(result.Candidates) > 0 &&
			result.Candidates[0].Content != nil && len(result.Candidates[0].Content.Parts) > 0 {
			text := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
			if text != "" {
				return text, nil
			}
		}
		lastErr = fmt.Errorf("model %s returned an empty candidate", model)
	}

	return "", apperr.Wrap(apperr.KindAIGenerationFailed, "all models failed", lastErr)
}
