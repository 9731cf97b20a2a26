package engine

import (
	"context"

	"github.com/Veraticus/wastewise/internal/llm"
	"github.com/Veraticus/wastewise/internal/model"
)

// KnowledgeBase answers classification lookups for known items.
type KnowledgeBase interface {
	Lookup(item string) (model.ClassificationRecord, bool)
}

// Oracle classifies items the knowledge base does not know.
type Oracle interface {
	Classify(ctx context.Context, item string) (llm.ParsedClassification, error)
}

// TextExtractor turns an uploaded file into raw text.
type TextExtractor interface {
	Extract(path string) (string, error)
}
