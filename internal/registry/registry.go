// Package registry is the static catalog of vector collections and the
// routing logic that maps user input and query text to collection keys.
package registry

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// Route reasons reported alongside resolved collections.
const (
	ReasonExplicitMulti = "explicit_multi"
	ReasonExplicit      = "explicit"
	ReasonKeyword       = "keyword"
	ReasonDefault       = "default"
)

// DefaultMaxQueryCollections caps how many collections one query may select.
const DefaultMaxQueryCollections = 2

// Collection is an immutable descriptor of one vector collection.
type Collection struct {
	Key        string
	VectorName string
	Label      string
	FileNames  []string
	Keywords   []string
	Country    string
	DocType    string
}

// Registry resolves collection keys and routes queries. Immutable after New.
type Registry struct {
	ordered    []Collection
	byKey      map[string]Collection
	defaultKey string
	maxQuery   int
}

// New builds a registry. The default key must exist and carry no keywords,
// so it is never auto-matched.
func New(collections []Collection, defaultKey string, maxQueryCollections int) (*Registry, error) {
	if maxQueryCollections <= 0 {
		maxQueryCollections = DefaultMaxQueryCollections
	}
	byKey := make(map[string]Collection, len(collections))
	for _, c := range collections {
		if c.Key == "" {
			return nil, fmt.Errorf("collection key is required")
		}
		if _, dup := byKey[c.Key]; dup {
			return nil, fmt.Errorf("duplicate collection key %q", c.Key)
		}
		byKey[c.Key] = c
	}
	def, ok := byKey[defaultKey]
	if !ok {
		return nil, fmt.Errorf("default collection %q is not registered", defaultKey)
	}
	if len(def.Keywords) > 0 {
		return nil, fmt.Errorf("default collection %q must not have routing keywords", defaultKey)
	}
	return &Registry{
		ordered:    collections,
		byKey:      byKey,
		defaultKey: defaultKey,
		maxQuery:   maxQueryCollections,
	}, nil
}

// Default returns the built-in country catalog.
func Default() *Registry {
	r, err := New([]Collection{
		{
			Key:        "all",
			VectorName: "country_rag_all",
			Label:      "All countries (default)",
			FileNames:  []string{"eu_summary.md", "fr.md", "ge.md", "it.md", "uk.md"},
			Country:    "all",
			DocType:    "summary",
		},
		{
			Key:        "eu",
			VectorName: "country_rag_eu",
			Label:      "Europe summary",
			FileNames:  []string{"eu_summary.md"},
			Keywords:   []string{"europe", "european"},
			Country:    "all",
			DocType:    "summary",
		},
		{
			Key:        "fr",
			VectorName: "country_rag_fr",
			Label:      "France",
			FileNames:  []string{"fr.md"},
			Keywords:   []string{"france", "french"},
			Country:    "france",
			DocType:    "country",
		},
		{
			Key:        "ge",
			VectorName: "country_rag_ge",
			Label:      "Germany",
			FileNames:  []string{"ge.md"},
			Keywords:   []string{"germany", "german"},
			Country:    "germany",
			DocType:    "country",
		},
		{
			Key:        "it",
			VectorName: "country_rag_it",
			Label:      "Italy",
			FileNames:  []string{"it.md"},
			Keywords:   []string{"italy", "italian"},
			Country:    "italy",
			DocType:    "country",
		},
		{
			Key:        "uk",
			VectorName: "country_rag_uk",
			Label:      "United Kingdom",
			FileNames:  []string{"uk.md"},
			Keywords:   []string{"britain", "united kingdom", "england"},
			Country:    "uk",
			DocType:    "country",
		},
	}, "all", DefaultMaxQueryCollections)
	if err != nil {
		panic(err) // static catalog, must be valid
	}
	return r
}

// DefaultKey returns the key of the default collection.
func (r *Registry) DefaultKey() string { return r.defaultKey }

// MaxQueryCollections returns the per-query collection selection cap.
func (r *Registry) MaxQueryCollections() int { return r.maxQuery }

// All returns descriptors in registration order.
func (r *Registry) All() []Collection { return r.ordered }

// Keys returns collection keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.ordered))
	for i, c := range r.ordered {
		keys[i] = c.Key
	}
	return keys
}

// Get returns the descriptor for a canonical key.
func (r *Registry) Get(key string) (Collection, error) {
	c, ok := r.byKey[key]
	if !ok {
		return Collection{}, domain.ErrInvalidCollection(r.supportedHint())
	}
	return c, nil
}

// VectorName returns the backing vector-collection name for a key.
func (r *Registry) VectorName(key string) (string, error) {
	c, err := r.Get(key)
	if err != nil {
		return "", err
	}
	return c.VectorName, nil
}

// ResolveKey maps a human-supplied name to a canonical key, matching keys
// first and vector names second, case-insensitively. Empty input resolves
// to "" with no error; unknown non-empty input is a typed error.
func (r *Registry) ResolveKey(input string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(input))
	if value == "" {
		return "", nil
	}
	if _, ok := r.byKey[value]; ok {
		return value, nil
	}
	for _, c := range r.ordered {
		if value == strings.ToLower(strings.TrimSpace(c.VectorName)) {
			return c.Key, nil
		}
	}
	return "", domain.ErrInvalidCollection(r.supportedHint())
}

// GuessKeyFromQuery returns the first non-default collection whose any
// keyword is a case-insensitive substring of the query, else the default.
func (r *Registry) GuessKeyFromQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	for _, c := range r.ordered {
		if c.Key == r.defaultKey {
			continue
		}
		for _, kw := range c.Keywords {
			if strings.Contains(normalized, strings.ToLower(kw)) {
				return c.Key
			}
		}
	}
	return r.defaultKey
}

// ResolveKeysForQuery picks the collections to search. An explicit list
// wins (deduplicated, capped at MaxQueryCollections; exceeding the cap is
// an error, not truncation); otherwise explicit single > keyword guess >
// default. allowFallback is true only for a pure keyword guess with no
// explicit hint.
func (r *Registry) ResolveKeysForQuery(
	query, explicitSingle string, explicitList []string,
) (keys []string, reason string, allowFallback bool, err error) {
	var explicit []string
	for _, v := range explicitList {
		if v = strings.TrimSpace(v); v != "" {
			explicit = append(explicit, v)
		}
	}

	if len(explicit) > 0 {
		for _, v := range explicit {
			key, resolveErr := r.ResolveKey(v)
			if resolveErr != nil {
				return nil, "", false, resolveErr
			}
			if key != "" {
				keys = append(keys, key)
			}
		}
		keys = dedupeKeys(keys)
		if len(keys) == 0 {
			return nil, "", false, domain.ErrInvalidCollection("No valid collections provided.")
		}
		if len(keys) > r.maxQuery {
			return nil, "", false, domain.ErrInvalidCollection(
				fmt.Sprintf("Too many collections. Up to %d collections are allowed.", r.maxQuery))
		}
		if len(keys) > 1 {
			return keys, ReasonExplicitMulti, false, nil
		}
		return keys, ReasonExplicit, false, nil
	}

	key, resolveErr := r.ResolveKey(explicitSingle)
	if resolveErr != nil {
		return nil, "", false, resolveErr
	}
	if key != "" {
		return []string{key}, ReasonExplicit, false, nil
	}

	guessed := r.GuessKeyFromQuery(query)
	if guessed != r.defaultKey {
		return []string{guessed}, ReasonKeyword, true, nil
	}
	return []string{r.defaultKey}, ReasonDefault, false, nil
}

func (r *Registry) supportedHint() string {
	return fmt.Sprintf("Supported: %s, up to %d collections per query.",
		strings.Join(r.Keys(), ", "), r.maxQuery)
}

func dedupeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
