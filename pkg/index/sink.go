// Package index mirrors photo metadata into a searchable side store.
//
// Indexing is a side channel of the download pipeline: callers log and
// drop Upsert failures, and nothing downstream reads from the index.
package index

import (
	"context"
	"fmt"
	"strings"

	"flickrbackup/pkg/config"
	"flickrbackup/pkg/logger"
)

// Sink stores one JSON document per photo, replacing any previous one
type Sink interface {
	Upsert(ctx context.Context, photoID string, body []byte) error
	Close() error
}

// NopSink discards every document
type NopSink struct{}

func (NopSink) Upsert(context.Context, string, []byte) error { return nil }
func (NopSink) Close() error                                 { return nil }

// New builds the sink selected by cfg.Type
func New(cfg config.IndexConfig, log logger.Logger) (Sink, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return NopSink{}, nil
	case "http":
		return NewHTTPSink(cfg.URL, cfg.Index, nil, log), nil
	case "sqlite":
		return OpenSQLiteSink(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown index type %q", cfg.Type)
	}
}
