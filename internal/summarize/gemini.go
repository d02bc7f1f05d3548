package summarize

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(256)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

const maxPromptRunes = 6000

// buildPrompt asks for a short factual blurb. Over-long bodies are cut on a
// sentence boundary.
func buildPrompt(region, title, content string, maxChars int) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) > maxPromptRunes {
		trimmed := string([]rune(content)[:maxPromptRunes])
		if idx := strings.LastIndex(trimmed, ". "); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		content = trimmed + "\n[TRUNCATED]"
	}

	return fmt.Sprintf(`Summarize this %s news article for a social media post.

ARTICLE:
Title: %s
Content: %s

REQUIREMENTS:
- At most 2 sentences and %d characters.
- Keep names of people, places and organisations as written.
- Keep concrete figures (amounts, counts, dates).
- No introductory phrases such as "This article is about".
- Do not repeat the title.

Reply strictly in this format:
SUMMARY: <summary>
`, region, title, content, maxChars)
}

var summaryLabel = regexp.MustCompile(`(?i)^\**\s*summary\s*\**\s*:\s*`)

// parseSummary takes the labelled answer, or the whole reply when the model
// skipped the label.
func parseSummary(response string) (string, error) {
	var b strings.Builder
	for _, raw := range strings.Split(response, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if summaryLabel.MatchString(line) {
			b.Reset()
			line = strings.TrimSpace(summaryLabel.ReplaceAllString(line, ""))
		}
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(line)
	}

	summary := strings.Trim(strings.TrimSpace(b.String()), `"`)
	if summary == "" {
		return "", errors.New("could not parse Gemini response: empty summary")
	}
	return summary, nil
}
