package config

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/chunker"
)

// Environment keys for runtime-tunable options. Read on every use so
// operators can flip them without a restart; malformed values fall back
// to the default with a warning, never a crash.
const (
	AdminCodeEnvKey           = "DOC_RAG_ADMIN_CODE"
	AutoApproveEnvKey         = "DOC_RAG_AUTO_APPROVE"
	ChunkingModeEnvKey        = "DOC_RAG_CHUNKING_MODE"
	ChunkTokenEncodingEnvKey  = "DOC_RAG_CHUNK_TOKEN_ENCODING"
	QueryTimeoutSecondsEnvKey = "DOC_RAG_QUERY_TIMEOUT_SECONDS"
	MaxContextCharsEnvKey     = "DOC_RAG_MAX_CONTEXT_CHARS"
)

const (
	defaultAdminCode           = "admin1234"
	defaultQueryTimeoutSeconds = 15
)

// Runtime reads per-call options from the environment.
type Runtime struct {
	logger *zap.Logger
}

// NewRuntime creates a runtime options reader.
func NewRuntime(logger *zap.Logger) *Runtime {
	return &Runtime{logger: logger}
}

// AdminCode returns the moderation admin code.
func (r *Runtime) AdminCode() string {
	value := strings.TrimSpace(os.Getenv(AdminCodeEnvKey))
	if value == "" {
		return defaultAdminCode
	}
	return value
}

// AutoApprove reports whether the auto-approve policy is active.
func (r *Runtime) AutoApprove() bool {
	raw := os.Getenv(AutoApproveEnvKey)
	if raw == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return false
}

// QueryTimeoutSeconds returns the LLM invocation deadline.
func (r *Runtime) QueryTimeoutSeconds() int {
	raw := os.Getenv(QueryTimeoutSecondsEnvKey)
	if raw == "" {
		return defaultQueryTimeoutSeconds
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.logger.Warn("invalid query timeout, using default",
			zap.String("value", raw), zap.Int("fallback", defaultQueryTimeoutSeconds))
		return defaultQueryTimeoutSeconds
	}
	if value < 1 {
		r.logger.Warn("query timeout must be >= 1, using default",
			zap.Int("value", value), zap.Int("fallback", defaultQueryTimeoutSeconds))
		return defaultQueryTimeoutSeconds
	}
	return value
}

// MaxContextChars returns the context character budget, or 0 when unset.
func (r *Runtime) MaxContextChars() int {
	raw := os.Getenv(MaxContextCharsEnvKey)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		r.logger.Warn("invalid max context chars, ignoring", zap.String("value", raw))
		return 0
	}
	if value <= 0 {
		r.logger.Warn("max context chars must be > 0, ignoring", zap.Int("value", value))
		return 0
	}
	return value
}

// ChunkingMode returns the effective chunking mode (char or token).
func (r *Runtime) ChunkingMode() string {
	raw := os.Getenv(ChunkingModeEnvKey)
	mode, err := chunker.NormalizeMode(raw)
	if err != nil {
		r.logger.Warn("invalid chunking mode, using default",
			zap.String("value", raw), zap.String("fallback", chunker.ModeChar))
		return chunker.ModeChar
	}
	return mode
}

// ChunkTokenEncoding returns the tiktoken encoding name for token mode.
func (r *Runtime) ChunkTokenEncoding() string {
	value := strings.TrimSpace(os.Getenv(ChunkTokenEncodingEnvKey))
	if value == "" {
		return chunker.DefaultTokenEncoding
	}
	return value
}
