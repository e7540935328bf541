package oracle

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"google.golang.org/genai"
)

// DefaultModelName is the default Gemini model used for name matching.
const DefaultModelName = "gemini-2.5-flash"

// generateFunc produces raw model text for a prompt. Injected so tests can
// script the model without a network.
type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Client is the match oracle client. It owns the retry policy and the
// degraded-decision fallback: a batch run should make maximal forward
// progress, so one bad entry must never abort hundreds of good ones.
type Client struct {
	model    string
	retry    RetryPolicy
	generate generateFunc
}

// NewClient builds a Gemini-backed client. An empty model falls back to
// DefaultModelName. Credentials come from the environment, same as every
// other GenAI consumer in this codebase.
func NewClient(model string, retry RetryPolicy) *Client {
	if model == "" {
		model = DefaultModelName
	}
	return &Client{
		model:    model,
		retry:    retry,
		generate: generateWithGenAI,
	}
}

// FindBestMatch resolves one query against the candidate set.
//
// Any failure (transport or schema) is retried once per the policy. If the
// retry also fails the error is NOT propagated: the client returns the
// degraded decision {matched:false, reference:"", confidence:0} and logs the
// cause. The caller records a NoMatch and moves on.
func (c *Client) FindBestMatch(ctx context.Context, query string, candidates []recon.CandidateRecord) recon.MatchDecision {
	log := logger.FromContext(ctx)
	prompt := buildMatchPrompt(query, candidates)

	var decision recon.MatchDecision
	err := c.retry.Do(ctx, func() error {
		raw, genErr := c.generate(ctx, c.model, prompt)
		if genErr != nil {
			return &TransportError{Err: genErr}
		}
		parsed, parseErr := parseDecision(raw, candidates)
		if parseErr != nil {
			return parseErr
		}
		decision = parsed
		return nil
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("query", query).
			Int("candidates", len(candidates)).
			Msg("Oracle call exhausted retries, degrading to NoMatch")
		return recon.MatchDecision{Matched: false, Reference: "", Confidence: 0}
	}

	return decision
}

// generateWithGenAI sends the prompt to Gemini and returns the raw text.
func generateWithGenAI(ctx context.Context, model, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return rawText, nil
}

// Ensure Client satisfies the engine's oracle contract.
var _ recon.MatchOracle = (*Client)(nil)
