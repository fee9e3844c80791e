// internal/aiquery/types.go
package aiquery

import (
	"context"

	"pos-insights/internal/models"
)

// CompletionOptions tune a single text generation call.
type CompletionOptions struct {
	JSONMode    bool
	Temperature float32
	MaxTokens   int
}

// TextCompleter is the external text generation service. The production
// implementation wraps the OpenAI chat completion API; tests substitute
// stubs. JSONMode asks the service for a single JSON document as output.
type TextCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

// ReadOnlyStore is the analytics store capability the pipeline consumes.
// The core never issues writes through it. Implementations scope every
// run to orgID since generated SQL carries no tenancy predicate.
type ReadOnlyStore interface {
	ExecuteReadOnly(ctx context.Context, orgID, sqlText string) (*models.ResultSet, error)
}

// SQLGenerationRequest is the immutable input to one generation call.
type SQLGenerationRequest struct {
	Query       string
	Schema      string
	DateRange   *models.DateRange
	LocationIDs []string
	Channel     string
	OrderType   string
}

// SQLGenerationResult is the outcome of generation plus hardening.
// IsValid=false implies SQL is empty; that invariant is owned by the
// generator and never bypassed.
type SQLGenerationResult struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
	IsValid     bool   `json:"isValid"`
	Error       string `json:"error,omitempty"`
}
