package ports

import (
	"context"

	"xplore/internal/engine/navigation"
)

// Editor is the capability surface of the external read-only code view.
// Navigation drives it; it never reaches back into engine state.
type Editor interface {
	GetCursorWord() string
	GetCurrentText() string
	GetLineText(line int) string
	RevealPosition(line int)
	SetLanguageHint(language string)
	// RevealDefinition and RevealDeclaration are the editor's own fallbacks,
	// used when the tag index has no candidates.
	RevealDefinition() bool
	RevealDeclaration() bool
}

// ContentFetcher retrieves the text of a workspace file.
type ContentFetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// HistoryState is a persisted copy of one session's navigation stacks.
type HistoryState struct {
	Active  navigation.Location   `json:"active"`
	Back    []navigation.Location `json:"back"`
	Forward []navigation.Location `json:"forward"`
}

// HistoryStore abstracts session history persistence.
type HistoryStore interface {
	SaveHistory(ctx context.Context, sessionID string, state HistoryState) error
	LoadHistory(ctx context.Context, sessionID string) (HistoryState, bool, error)
}
