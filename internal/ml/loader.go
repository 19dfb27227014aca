package ml

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type artifactStore interface {
	Open(key string) (*os.File, error)
}

// Loader materialises the classifier from the blob store. The artifact is
// copied into a uniquely named temp file, deserialized, and the copy is
// removed immediately: the local file is pure transit, never a cache, and
// the unique name keeps concurrent loads from colliding.
type Loader struct {
	store       artifactStore
	artifactKey string
	logger      *zap.Logger
}

// NewLoader constructs a Loader for the configured artifact key.
func NewLoader(store artifactStore, artifactKey string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, artifactKey: artifactKey, logger: logger}
}

// Load fetches and deserializes the classifier.
func (l *Loader) Load(ctx context.Context) (*Classifier, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := l.store.Open(l.artifactKey)
	if err != nil {
		return nil, fmt.Errorf("fetch model artifact %s: %w", l.artifactKey, err)
	}
	defer src.Close() //nolint:errcheck

	tmpPath := filepath.Join(os.TempDir(), "risk-model-"+uuid.NewString()+".json")
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			l.logger.Warn("failed to remove scratch model file", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("stage model artifact: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("rewind scratch file: %w", err)
	}

	clf, err := DecodeClassifier(tmp)
	closeErr := tmp.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		l.logger.Warn("failed to close scratch model file", zap.Error(closeErr))
	}
	return clf, nil
}
