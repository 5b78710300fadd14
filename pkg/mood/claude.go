package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// maxSnippets caps how many review snippets are sent per place.
	maxSnippets = 5
	// maxSnippetChars truncates individual snippets.
	maxSnippetChars = 400
)

// systemPrompt asks for a single energy score on the same 0–100 scale the
// user's mood slider uses.
const systemPrompt = `You rate the energy level of a venue from visitor reviews. 0 means extremely calm and quiet (a library, a spa), 100 means extremely lively and high-energy (a packed nightclub). Judge only atmosphere, not quality.

Respond with ONLY valid JSON, no other text:
{"mood": 50, "reasoning": "brief explanation"}`

type moodResponse struct {
	Mood      float64 `json:"mood"`
	Reasoning string  `json:"reasoning"`
}

// messenger is the slice of the SDK the analyzer uses, split out for tests.
type messenger interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// ClaudeAnalyzer infers venue mood via Claude.
type ClaudeAnalyzer struct {
	messages messenger
	model    string
}

// NewClaude creates an Analyzer backed by the Anthropic API.
func NewClaude(apiKey, model string) *ClaudeAnalyzer {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeAnalyzer{messages: &client.Messages, model: model}
}

// AnalyzeMood scores the collective energy of the given review snippets.
func (a *ClaudeAnalyzer) AnalyzeMood(ctx context.Context, reviews []string) (int, error) {
	if len(reviews) == 0 {
		return Neutral, nil
	}

	resp, err := a.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: 256,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildUserMessage(reviews))),
		},
	})
	if err != nil {
		return 0, eris.Wrap(err, "mood: claude request")
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return 0, eris.New("mood: empty claude response")
	}

	score, err := parseMood(text)
	if err != nil {
		return 0, err
	}

	zap.L().Debug("mood analyzed", zap.Int("score", score), zap.Int("reviews", len(reviews)))
	return score, nil
}

func buildUserMessage(reviews []string) string {
	if len(reviews) > maxSnippets {
		reviews = reviews[:maxSnippets]
	}
	var b strings.Builder
	b.WriteString("Reviews:\n")
	for i, r := range reviews {
		if len(r) > maxSnippetChars {
			r = r[:maxSnippetChars]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

// parseMood extracts the JSON object from the response text, which may carry
// surrounding prose, and clamps the score to [0,100].
func parseMood(text string) (int, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return 0, eris.Errorf("mood: no JSON in response: %s", text)
	}

	var result moodResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return 0, eris.Wrap(err, "mood: parse response JSON")
	}

	score := int(result.Mood)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}
