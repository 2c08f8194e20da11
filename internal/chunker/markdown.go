// Package chunker splits markdown documents into header-scoped chunks
// under a size/overlap budget and validates raw markdown against the
// ingest rules.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// Chunk sizing modes.
const (
	ModeChar  = "char"
	ModeToken = "token"

	DefaultTokenEncoding = "cl100k_base"
	DefaultChunkSize     = 800
	DefaultChunkOverlap  = 120
)

var headerRe = regexp.MustCompile(`^(#{2,4})\s+(.+?)\s*$`)

// NormalizeMode lowercases and validates a chunking mode string.
func NormalizeMode(mode string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(mode))
	if value == "" {
		return ModeChar, nil
	}
	switch value {
	case ModeChar, ModeToken:
		return value, nil
	}
	return "", fmt.Errorf("unsupported chunking mode: %s (use one of: %s, %s)", mode, ModeChar, ModeToken)
}

// Params configures a Splitter.
type Params struct {
	ChunkSize     int
	ChunkOverlap  int
	Mode          string
	TokenEncoding string
}

// Info reports the effective splitter configuration.
func (p Params) Info() domain.ChunkingInfo {
	return domain.ChunkingInfo{
		Mode:          p.Mode,
		TokenEncoding: p.TokenEncoding,
		ChunkSize:     p.ChunkSize,
		ChunkOverlap:  p.ChunkOverlap,
	}
}

// Splitter produces header-scoped chunks. Safe for concurrent use.
type Splitter struct {
	params Params
	length func(string) int
}

// NewSplitter builds a splitter for the given params. Token mode loads the
// named tiktoken encoding; char mode measures rune counts.
func NewSplitter(p Params) (*Splitter, error) {
	mode, err := NormalizeMode(p.Mode)
	if err != nil {
		return nil, err
	}
	p.Mode = mode
	if p.ChunkSize <= 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		p.ChunkOverlap = DefaultChunkOverlap
	}
	if strings.TrimSpace(p.TokenEncoding) == "" {
		p.TokenEncoding = DefaultTokenEncoding
	}

	length := func(s string) int { return utf8.RuneCountInString(s) }
	if mode == ModeToken {
		enc, err := tiktoken.GetEncoding(p.TokenEncoding)
		if err != nil {
			return nil, fmt.Errorf("load token encoding %q: %w", p.TokenEncoding, err)
		}
		length = func(s string) int { return len(enc.Encode(s, nil, nil)) }
	}

	return &Splitter{params: p, length: length}, nil
}

// Params returns the effective configuration.
func (s *Splitter) Params() Params { return s.params }

// Split chunks each document: header sections first, then the size
// splitter within each section. Parent metadata is merged into, and
// overridden by, header-local metadata.
func (s *Splitter) Split(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		sections := splitByHeaders(doc.Content)
		for _, sec := range sections {
			meta := doc.Metadata.Merge(sec.meta)
			for _, piece := range s.splitText(sec.text) {
				chunks = append(chunks, domain.Chunk{Text: piece, Metadata: meta})
			}
		}
	}
	return chunks
}

type section struct {
	text string
	meta domain.ChunkMetadata
}

// splitByHeaders groups lines under the most recent ##/###/#### headers.
// Header lines stay in the section text. A new ## clears h3/h4; a new ###
// clears h4. Content before any header forms a section without header
// metadata. A document with no headers yields one whole-document section.
func splitByHeaders(content string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	var buf []string
	var current domain.ChunkMetadata

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if text != "" {
			sections = append(sections, section{text: text, meta: current})
		}
		buf = buf[:0]
	}

	for _, raw := range lines {
		m := headerRe.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			buf = append(buf, raw)
			continue
		}

		flush()
		title := m[2]
		switch len(m[1]) {
		case 2:
			current = domain.ChunkMetadata{H2: title}
		case 3:
			current = domain.ChunkMetadata{H2: current.H2, H3: title}
		case 4:
			current = domain.ChunkMetadata{H2: current.H2, H3: current.H3, H4: title}
		}
		buf = append(buf, raw)
	}
	flush()

	if len(sections) == 0 {
		text := strings.TrimSpace(content)
		if text != "" {
			sections = append(sections, section{text: text})
		}
	}
	return sections
}

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// splitText recursively splits text under the size budget, then merges
// neighbouring pieces back together with the configured overlap.
func (s *Splitter) splitText(text string) []string {
	return s.recursiveSplit(text, defaultSeparators)
}

func (s *Splitter) recursiveSplit(text string, separators []string) []string {
	if s.length(text) <= s.params.ChunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	sep, rest := pickSeparator(text, separators)

	var pieces []string
	if sep == "" {
		pieces = splitRunes(text, s.params.ChunkSize)
	} else {
		pieces = strings.Split(text, sep)
	}

	var out []string
	var window []string
	sepLen := s.length(sep)

	windowLen := func() int {
		total := 0
		for i, p := range window {
			if i > 0 {
				total += sepLen
			}
			total += s.length(p)
		}
		return total
	}
	emit := func() {
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			out = append(out, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := s.length(piece)

		if pieceLen > s.params.ChunkSize {
			emit()
			window = nil
			out = append(out, s.recursiveSplit(piece, rest)...)
			continue
		}

		if len(window) > 0 && windowLen()+sepLen+pieceLen > s.params.ChunkSize {
			emit()
			// Retain a tail of the window as overlap for the next chunk.
			for len(window) > 0 &&
				(windowLen() > s.params.ChunkOverlap || windowLen()+sepLen+pieceLen > s.params.ChunkSize) {
				window = window[1:]
			}
		}
		window = append(window, piece)
	}
	emit()
	return out
}

// pickSeparator chooses the first separator present in the text and
// returns it with the remaining lower-priority separators.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitRunes hard-cuts text into rune windows of at most size.
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 {
		size = 1
	}
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
