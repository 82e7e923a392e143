package tags

import (
	"encoding/json"
	"strconv"
	"strings"

	"xplore/internal/shared/util"
)

// Tag is one symbol occurrence from the tag feed. Line is 1-based; 0 means
// the feed gave no usable line and Pattern (if any) must be used to locate
// the symbol. A tag with neither navigates to file level only.
type Tag struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Line      int    `json:"line,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Language  string `json:"language,omitempty"`
	Scope     string `json:"scope,omitempty"`
	ScopeKind string `json:"scopeKind,omitempty"`
	Signature string `json:"signature,omitempty"`
	TypeRef   string `json:"typeref,omitempty"`
}

// HasLine reports whether the tag carries a precise line number.
func (t Tag) HasLine() bool { return t.Line > 0 }

// Key identifies a tag location for de-duplication.
func (t Tag) Key() string {
	return t.Path + "\x00" + strconv.Itoa(t.Line) + "\x00" + t.Pattern + "\x00" + t.Kind
}

// rawTag mirrors the loose feed format: line may be a number, a string or
// null, and the signature is sometimes published as "sig".
type rawTag struct {
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	Line      json.RawMessage `json:"line"`
	Pattern   string          `json:"pattern"`
	Kind      string          `json:"kind"`
	Language  string          `json:"language"`
	Scope     string          `json:"scope"`
	ScopeKind string          `json:"scopeKind"`
	Signature string          `json:"signature"`
	Sig       string          `json:"sig"`
	TypeRef   string          `json:"typeref"`
}

// parseTagLine decodes a single NDJSON record. ok is false when the line is
// malformed or lacks a name or path.
func parseTagLine(line []byte) (Tag, bool) {
	var raw rawTag
	if err := json.Unmarshal(line, &raw); err != nil {
		return Tag{}, false
	}
	if raw.Name == "" || raw.Path == "" {
		return Tag{}, false
	}

	sig := raw.Signature
	if sig == "" {
		sig = raw.Sig
	}
	return Tag{
		Name:      raw.Name,
		Path:      util.NormalizeSlashes(raw.Path),
		Line:      parseLine(raw.Line),
		Pattern:   raw.Pattern,
		Kind:      raw.Kind,
		Language:  raw.Language,
		Scope:     raw.Scope,
		ScopeKind: raw.ScopeKind,
		Signature: sig,
		TypeRef:   raw.TypeRef,
	}, true
}

func parseLine(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n >= 1 {
			return int(n)
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v >= 1 {
			return v
		}
	}
	return 0
}
