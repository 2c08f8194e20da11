// Package domain holds the shared records of the RAG service: document
// chunks, validation reports, upload requests, cap accounting, and the
// typed API error taxonomy.
package domain

import "strings"

// ChunkMetadata describes where a chunk came from. Header fields are set
// only when a header of that level was seen above the chunk.
type ChunkMetadata struct {
	Source  string `json:"source"`
	Country string `json:"country"`
	DocType string `json:"doc_type"`
	H2      string `json:"h2,omitempty"`
	H3      string `json:"h3,omitempty"`
	H4      string `json:"h4,omitempty"`
}

// Merge returns base metadata overridden by any header-local fields of o.
func (m ChunkMetadata) Merge(o ChunkMetadata) ChunkMetadata {
	out := m
	if o.Source != "" {
		out.Source = o.Source
	}
	if o.Country != "" {
		out.Country = o.Country
	}
	if o.DocType != "" {
		out.DocType = o.DocType
	}
	if o.H2 != "" {
		out.H2 = o.H2
	}
	if o.H3 != "" {
		out.H3 = o.H3
	}
	if o.H4 != "" {
		out.H4 = o.H4
	}
	return out
}

// HeaderPath joins the present header titles, outer to inner.
func (m ChunkMetadata) HeaderPath() string {
	parts := make([]string, 0, 3)
	for _, h := range []string{m.H2, m.H3, m.H4} {
		if h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, ">")
}

// Chunk is a single embeddable passage.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// Fingerprint identifies a passage across collections for deduplication.
func (c Chunk) Fingerprint() string {
	return c.Metadata.Source + "|" + c.Metadata.HeaderPath() + "|" + c.Text
}

// Document is a whole markdown document before splitting.
type Document struct {
	Content  string
	Metadata ChunkMetadata
}
