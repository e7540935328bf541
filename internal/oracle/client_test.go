package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestClient wires a client around a scripted generate function with a
// fast retry policy.
func newTestClient(generate generateFunc) *Client {
	return &Client{
		model:    DefaultModelName,
		retry:    RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond},
		generate: generate,
	}
}

func TestClient_FindBestMatch_Success(t *testing.T) {
	client := newTestClient(func(ctx context.Context, model, prompt string) (string, error) {
		return `{"matched": true, "reference": "Expenses:B2", "confidence": 0.92}`, nil
	})

	decision := client.FindBestMatch(context.Background(), "ACME S.R.L.", testCandidates())

	if !decision.Matched || decision.Reference != "Expenses:B2" || decision.Confidence != 0.92 {
		t.Errorf("Unexpected decision: %+v", decision)
	}
}

func TestClient_FindBestMatch_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	client := newTestClient(func(ctx context.Context, model, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection reset")
		}
		return `{"matched": true, "reference": "Expenses:B3", "confidence": 0.8}`, nil
	})

	decision := client.FindBestMatch(context.Background(), "globex", testCandidates())

	if calls != 2 {
		t.Errorf("Expected 2 generate calls, got %d", calls)
	}
	if !decision.Matched || decision.Reference != "Expenses:B3" {
		t.Errorf("Unexpected decision: %+v", decision)
	}
}

func TestClient_FindBestMatch_DegradesOnExhaustion(t *testing.T) {
	calls := 0
	client := newTestClient(func(ctx context.Context, model, prompt string) (string, error) {
		calls++
		return "", errors.New("service unavailable")
	})

	decision := client.FindBestMatch(context.Background(), "ACME S.R.L.", testCandidates())

	if calls != 2 {
		t.Errorf("Expected 2 generate calls, got %d", calls)
	}
	// The degraded decision, never an error: the batch must keep moving.
	if decision.Matched || decision.Reference != "" || decision.Confidence != 0 {
		t.Errorf("Expected degraded NoMatch decision, got %+v", decision)
	}
}

func TestClient_FindBestMatch_DegradesOnPersistentSchemaError(t *testing.T) {
	client := newTestClient(func(ctx context.Context, model, prompt string) (string, error) {
		return "row 3 looks right", nil
	})

	decision := client.FindBestMatch(context.Background(), "ACME S.R.L.", testCandidates())

	if decision.Matched || decision.Confidence != 0 {
		t.Errorf("Expected degraded NoMatch decision, got %+v", decision)
	}
}

func TestClient_FindBestMatch_RecoversAfterSchemaError(t *testing.T) {
	calls := 0
	client := newTestClient(func(ctx context.Context, model, prompt string) (string, error) {
		calls++
		if calls == 1 {
			// First attempt points at a reference outside the candidate set.
			return `{"matched": true, "reference": "Expenses:Z99", "confidence": 0.9}`, nil
		}
		return `{"matched": true, "reference": "Expenses:B2", "confidence": 0.9}`, nil
	})

	decision := client.FindBestMatch(context.Background(), "ACME S.R.L.", testCandidates())

	if calls != 2 {
		t.Errorf("Expected 2 generate calls, got %d", calls)
	}
	if !decision.Matched || decision.Reference != "Expenses:B2" {
		t.Errorf("Unexpected decision: %+v", decision)
	}
}

func TestNewClient_DefaultsModel(t *testing.T) {
	client := NewClient("", DefaultRetryPolicy())
	if client.model != DefaultModelName {
		t.Errorf("Expected default model %s, got %s", DefaultModelName, client.model)
	}

	named := NewClient("gemini-2.5-pro", DefaultRetryPolicy())
	if named.model != "gemini-2.5-pro" {
		t.Errorf("Expected explicit model to stick, got %s", named.model)
	}
}

func TestBuildMatchPrompt_ContainsQueryAndReferences(t *testing.T) {
	prompt := buildMatchPrompt("ACME S.R.L.", testCandidates())

	for _, want := range []string{"ACME S.R.L.", "Expenses:B2", "Expenses:B3", "Acme SRL", "Globex SA"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}
