package tags

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/observability"
)

const maxFeedLine = 4 * 1024 * 1024

// LoadStats summarises one feed load. Loaded + Dropped == Lines.
type LoadStats struct {
	Lines   int
	Loaded  int
	Dropped int
	Files   int
}

type snapshot struct {
	all    []Tag
	byPath map[string][]Tag
	byName map[string][]Tag
}

var emptySnapshot = &snapshot{
	byPath: map[string][]Tag{},
	byName: map[string][]Tag{},
}

// Store is the in-memory symbol index. Readers always see a complete
// snapshot; Load builds a new one and swaps it in only on success.
type Store struct {
	current atomic.Pointer[snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(emptySnapshot)
	return s
}

// NewStoreFromTags builds a store directly from already-parsed tags.
func NewStoreFromTags(tags []Tag) *Store {
	s := &Store{}
	s.current.Store(buildSnapshot(tags))
	return s
}

// Load replaces the store contents with the NDJSON feed read from r.
// Malformed lines are skipped and counted. A read failure leaves the
// previous snapshot in place.
func (s *Store) Load(r io.Reader) (LoadStats, error) {
	start := time.Now()
	defer func() { observability.TagLoadDuration.Observe(time.Since(start).Seconds()) }()

	var stats LoadStats
	parsed := make([]Tag, 0, 1024)

	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	for {
		line, tooLong, err := readFeedLine(br, buf)
		buf = line
		switch {
		case tooLong:
			stats.Lines++
			stats.Dropped++
			slog.Debug("tag feed line exceeds limit", "limit", maxFeedLine, "line", stats.Lines)
		default:
			record := bytes.TrimSpace(line)
			if len(record) == 0 {
				break
			}
			stats.Lines++
			tag, ok := parseTagLine(record)
			if !ok {
				stats.Dropped++
				break
			}
			parsed = append(parsed, tag)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			observability.TagLoadFailuresTotal.Inc()
			return stats, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "read tag feed")
		}
	}

	snap := buildSnapshot(parsed)
	s.current.Store(snap)

	stats.Loaded = len(parsed)
	stats.Files = len(snap.byPath)
	observability.TagsLoaded.Set(float64(stats.Loaded))
	observability.TagFeedDroppedTotal.Add(float64(stats.Dropped))
	slog.Info("tags loaded", "symbols", stats.Loaded, "files", stats.Files, "dropped", stats.Dropped)
	return stats, nil
}

// readFeedLine reads one newline-terminated record into buf. A record longer
// than maxFeedLine is consumed to its end and reported as tooLong.
func readFeedLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	buf = buf[:0]
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxFeedLine {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return buf, tooLong, err
	}
}

func buildSnapshot(tags []Tag) *snapshot {
	snap := &snapshot{
		all:    tags,
		byPath: make(map[string][]Tag),
		byName: make(map[string][]Tag),
	}
	for _, t := range tags {
		snap.byPath[t.Path] = append(snap.byPath[t.Path], t)
		snap.byName[t.Name] = append(snap.byName[t.Name], t)
	}
	return snap
}

func (s *Store) snap() *snapshot {
	return s.current.Load()
}

// Len returns the number of tags in the current snapshot.
func (s *Store) Len() int { return len(s.snap().all) }

// All returns every tag in feed order. The slice must not be modified.
func (s *Store) All() []Tag { return s.snap().all }

// ByPath returns the tags whose path equals p.
func (s *Store) ByPath(p string) []Tag { return s.snap().byPath[p] }

// ByName returns the tags named name across the workspace.
func (s *Store) ByName(name string) []Tag { return s.snap().byName[name] }

// LocalByName returns tags named name within file p.
func (s *Store) LocalByName(p, name string) []Tag {
	var out []Tag
	for _, t := range s.snap().byPath[p] {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// ByKind returns all tags whose kind matches, case-insensitively.
func (s *Store) ByKind(kind string) []Tag {
	var out []Tag
	for _, t := range s.snap().all {
		if strings.EqualFold(t.Kind, kind) {
			out = append(out, t)
		}
	}
	return out
}

// Files returns the sorted list of paths that carry at least one tag.
func (s *Store) Files() []string {
	byPath := s.snap().byPath
	files := make([]string, 0, len(byPath))
	for p := range byPath {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}
