package search

import "github.com/bookhaven/bookhaven-api/internal/domain/model"

// OutcomeKind tags the result of an AI resolution so callers pattern-match
// instead of relying on truthiness checks.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeEmpty
	OutcomeParseError
	OutcomeProviderError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one AI resolution attempt.
type Outcome struct {
	Kind  OutcomeKind
	Books []model.Book
	Err   error
}

// Result is what the pipeline hands to the HTTP layer: the book list plus the
// stage that produced it.
type Result struct {
	Books  []model.Book `json:"books"`
	Source string       `json:"source"` // "keyword", "cache", "ai" or "popular"
}
