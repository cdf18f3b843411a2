package nl2sql

import (
	"context"

	"github.com/datapeek/datapeek/internal/query"
)

// Request carries everything the model needs to write SQL against the one
// exposed table, which is always named "data".
type Request struct {
	Prompt  string         `json:"prompt"`
	Columns []query.Column `json:"columns"`
	Sample  map[string]any `json:"sample,omitempty"`
}

type Result struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}
