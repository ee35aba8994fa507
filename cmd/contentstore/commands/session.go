// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/bureau-foundation/contentstore/cmd/contentstore/cli"
	"github.com/bureau-foundation/contentstore/lib/config"
	"github.com/bureau-foundation/contentstore/lib/content"
	"github.com/bureau-foundation/contentstore/lib/contentindex"
	"github.com/bureau-foundation/contentstore/lib/contentstore"
	"github.com/bureau-foundation/contentstore/lib/objectdb"
)

// Globals carries the process-wide flags and I/O every command shares.
type Globals struct {
	// ConfigPath is --config. Empty means CONTENTSTORE_CONFIG.
	ConfigPath string

	// Metrics dumps the content store's Prometheus metrics to Stderr
	// when a command finishes.
	Metrics bool

	Stdout io.Writer
	Stderr io.Writer

	// Logger overrides the logger built from the configuration.
	Logger *slog.Logger
}

// session is an opened store: configuration, object database and the
// content store on top of it.
type session struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	db       *objectdb.DB
	store    *contentstore.Store
	globals  *Globals
	closers  []func() error
}

// blobTypes are the types the CLI can load: raw, headerless content.
var blobTypes = []reflect.Type{reflect.TypeFor[*content.Blob]()}

func openSession(ctx context.Context, globals *Globals, command string) (_ *session, err error) {
	var cfg *config.Config
	if globals.ConfigPath != "" {
		cfg, err = config.LoadFile(globals.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	logger := globals.Logger
	if logger == nil {
		logger = cli.NewCommandLogger(cfg.LogLevel(), cfg.Log.Format)
	}
	logger = logger.With("command", command)

	s := &session{config: cfg, logger: logger, globals: globals, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			s.closeResources()
		}
	}()

	index, err := openIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, index.Close)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	compression, err := objectdb.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}
	var sealer *objectdb.Sealer
	switch {
	case cfg.Store.SealingIdentityFile != "":
		sealer, err = objectdb.LoadWrappedSealer(cfg.Store.SealingKeyFile, cfg.Store.SealingIdentityFile)
	case cfg.Store.SealingKeyFile != "":
		sealer, err = objectdb.LoadSealer(cfg.Store.SealingKeyFile)
	}
	if err != nil {
		return nil, err
	}
	if sealer != nil {
		s.closers = append(s.closers, sealer.Close)
	}

	s.db, err = objectdb.New(objectdb.Options{
		Backend:     backend,
		Index:       index,
		Compression: compression,
		CompressionFor: func(location string) (objectdb.Compression, bool) {
			if cfg.Uncompressed(location) {
				return objectdb.CompressionNone, true
			}
			return 0, false
		},
		Sealer: sealer,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	metrics, err := contentstore.NewMetrics(s.registry)
	if err != nil {
		return nil, err
	}
	s.store, err = contentstore.New(contentstore.Options{
		Files:   s.db,
		Types:   blobTypes,
		Logger:  logger,
		Metrics: metrics,
		OnNotFound: func(notFound *contentstore.NotFoundError) {
			logger.Warn("content not found", "location", notFound.Location)
		},
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openIndex(cfg *config.Config, logger *slog.Logger) (contentindex.Index, error) {
	switch cfg.Index.Kind {
	case config.IndexMemory:
		return contentindex.NewMemoryIndex(nil), nil
	case config.IndexSQLite:
		index, err := contentindex.OpenSQLite(contentindex.SQLiteConfig{
			Path:     cfg.Index.Path,
			PoolSize: cfg.Index.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return index, nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", cfg.Index.Kind)
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (objectdb.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return objectdb.NewMemoryBackend(), nil
	case config.BackendDirectory:
		backend, err := objectdb.NewDirBackend(cfg.ObjectsDir())
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.BackendS3:
		client, err := objectdb.NewS3Client(ctx, objectdb.S3Config{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		backend, err := objectdb.NewS3Backend(client, cfg.S3.Bucket, cfg.S3.Prefix)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// closeResources releases everything the session opened, newest first.
func (s *session) closeResources() error {
	var errs []error
	for _, closer := range slices.Backward(s.closers) {
		errs = append(errs, closer())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Close releases the session and, with --metrics, dumps the metrics.
func (s *session) Close() error {
	var errs []error
	if s.globals.Metrics {
		errs = append(errs, s.dumpMetrics(s.globals.Stderr))
	}
	errs = append(errs, s.closeResources())
	return errors.Join(errs...)
}

func (s *session) dumpMetrics(w io.Writer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// withSession opens a session, runs fn and closes the session,
// returning the first error.
func withSession(ctx context.Context, globals *Globals, command string, fn func(*session) error) (err error) {
	s, err := openSession(ctx, globals, command)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}
