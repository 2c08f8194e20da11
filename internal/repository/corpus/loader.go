// Package corpus loads the markdown source files that feed the index.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/registry"
)

// Loader reads markdown documents from the data directory, attaching the
// country/doc_type metadata registered for each file.
type Loader struct {
	dataDir string
	byFile  map[string]registry.Collection
	allowed []string
	logger  *zap.Logger
}

// NewLoader builds a loader over the registry catalog. Per-file metadata
// comes from the narrowest collection that lists the file, so documents
// loaded for the default collection still carry their own country.
func NewLoader(dataDir string, reg *registry.Registry, logger *zap.Logger) *Loader {
	byFile := make(map[string]registry.Collection)
	for _, c := range reg.All() {
		if c.Key == reg.DefaultKey() {
			continue
		}
		for _, name := range c.FileNames {
			if _, ok := byFile[name]; !ok {
				byFile[name] = c
			}
		}
	}

	var allowed []string
	if def, err := reg.Get(reg.DefaultKey()); err == nil {
		allowed = def.FileNames
	}

	return &Loader{dataDir: dataDir, byFile: byFile, allowed: allowed, logger: logger}
}

// Load reads the named files in order, skipping missing ones.
func (l *Loader) Load(fileNames []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, name := range fileNames {
		path := filepath.Join(l.dataDir, name)
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("skipping missing corpus file", zap.String("path", path))
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		country, docType := "unknown", "country"
		if c, ok := l.byFile[name]; ok {
			country, docType = c.Country, c.DocType
		}

		docs = append(docs, domain.Document{
			Content: string(data),
			Metadata: domain.ChunkMetadata{
				Source:  name,
				Country: country,
				DocType: docType,
			},
		})
	}
	return docs, nil
}

// DocInfo describes one corpus file for the docs listing.
type DocInfo struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	UpdatedAt int64  `json:"updated_at"`
}

// ListDocs returns the files of the default catalog that exist on disk.
func (l *Loader) ListDocs() []DocInfo {
	var out []DocInfo
	for _, name := range l.allowed {
		info, err := os.Stat(filepath.Join(l.dataDir, name))
		if err != nil {
			continue
		}
		out = append(out, DocInfo{Name: name, Size: info.Size(), UpdatedAt: info.ModTime().Unix()})
	}
	return out
}

// ReadDoc returns the raw content of a catalog file. Names outside the
// catalog or missing on disk are NOT_FOUND.
func (l *Loader) ReadDoc(name string) ([]byte, error) {
	allowed := false
	for _, n := range l.allowed {
		if n == name {
			allowed = true
			break
		}
	}
	if !allowed || strings.Contains(name, "..") {
		return nil, domain.ErrNotFound(fmt.Sprintf("Document not found: %s", name))
	}

	data, err := os.ReadFile(filepath.Clean(filepath.Join(l.dataDir, name)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound(fmt.Sprintf("Document not found: %s", name))
		}
		return nil, fmt.Errorf("read doc %s: %w", name, err)
	}
	return data, nil
}
