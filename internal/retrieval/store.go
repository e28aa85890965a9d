// Package retrieval serves scope-filtered nearest-neighbor lookups over the
// sealed answer corpus.
//
// A Store decrypts and decodes its index and metadata at most once per
// process, on first use, and shares them read-only across goroutines.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"caseprep/internal/blob"
	"caseprep/internal/corpus"
	"caseprep/internal/crypto"
	"caseprep/internal/domain"
	"caseprep/internal/embedding"
	apperr "caseprep/internal/errors"
	"caseprep/internal/index"
	"caseprep/internal/logger"
	"caseprep/internal/metadata"
	"caseprep/internal/metrics"
)

// Config wires a Store to its artifacts and embedding model.
type Config struct {
	IndexSource    blob.Source
	MetadataSource blob.Source
	Cipher         crypto.Cipher
	Embedder       embedding.Spec
	// Registry resolves Embedder.Provider; nil means the built-in providers.
	Registry  *embedding.Registry
	Overfetch OverfetchPolicy
	Logger    *zap.Logger
}

// Store is safe for concurrent use.
type Store struct {
	cfg       Config
	log       *zap.Logger
	overfetch OverfetchPolicy

	index    lazy[*index.Flat]
	meta     lazy[*metadata.Table]
	corpus   lazy[*corpus.Corpus]
	embedder lazy[embedding.Embedder]

	// embedMu serializes calls into the embedder, which is not assumed to be
	// safe for concurrent use.
	embedMu sync.Mutex
}

// New validates cfg. Nothing is read or decrypted until first use.
func New(cfg Config) (*Store, error) {
	var problems []string
	if cfg.IndexSource == nil {
		problems = append(problems, "index source is required")
	}
	if cfg.MetadataSource == nil {
		problems = append(problems, "metadata source is required")
	}
	if cfg.Cipher == nil {
		problems = append(problems, "cipher is required")
	}
	if len(problems) > 0 {
		return nil, apperr.Errorf(apperr.CodeStoreConfigInvalid, "retrieval: %v", problems)
	}
	if cfg.Registry == nil {
		cfg.Registry = embedding.Default()
	}
	overfetch := cfg.Overfetch
	if overfetch.isZero() {
		overfetch = DefaultOverfetch()
	}
	return &Store{cfg: cfg, log: logger.Nop(cfg.Logger), overfetch: overfetch}, nil
}

// Index returns the decrypted vector index, loading it on first call.
func (s *Store) Index(ctx context.Context) (*index.Flat, error) {
	return s.index.get(ctx, s.loadIndex, isPermanent)
}

// Metadata returns the decrypted record table, loading it on first call.
func (s *Store) Metadata(ctx context.Context) (*metadata.Table, error) {
	return s.meta.get(ctx, s.loadMetadata, isPermanent)
}

// Corpus returns the index and metadata paired and checked for alignment.
func (s *Store) Corpus(ctx context.Context) (*corpus.Corpus, error) {
	return s.corpus.get(ctx, s.loadCorpus, isPermanent)
}

// Embedder returns the query embedder, loading the model on first call.
// Load failures are not cached.
func (s *Store) Embedder(ctx context.Context) (embedding.Embedder, error) {
	return s.embedder.get(ctx, s.loadEmbedder, func(error) bool { return false })
}

// Stats describes a warmed store.
type Stats struct {
	Vectors   int
	Dimension int
	Metric    index.Metric
	Scopes    int
	Embedder  string
}

// Warm loads every resource and checks that the embedder and index agree
// on dimension. Hosts call it at startup to fail before the first query.
func (s *Store) Warm(ctx context.Context) (Stats, error) {
	c, err := s.Corpus(ctx)
	if err != nil {
		return Stats{}, err
	}
	emb, err := s.Embedder(ctx)
	if err != nil {
		return Stats{}, err
	}
	if emb.Dimension() != c.Dim() {
		return Stats{}, apperr.New(apperr.CodeModelLoadFailure,
			fmt.Sprintf("retrieval: %s embedder produces %d-dimensional vectors but the index holds %d", emb.Name(), emb.Dimension(), c.Dim()))
	}
	return Stats{
		Vectors:   c.Len(),
		Dimension: c.Dim(),
		Metric:    c.Metric(),
		Scopes:    len(c.Scopes()),
		Embedder:  emb.Name(),
	}, nil
}

// NearestNeighbors returns up to n records from scope, nearest to text first.
// A scope with no nearby records yields an empty slice, not an error.
// Records from other scopes are never returned.
func (s *Store) NearestNeighbors(ctx context.Context, text string, scope domain.Scope, n int) (out []domain.Neighbor, err error) {
	start := time.Now()
	metrics.QueriesTotal.Inc()
	defer func() {
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.QueryErrors.WithLabelValues(errorKind(err)).Inc()
		}
	}()

	if n < 1 {
		return nil, apperr.Errorf(apperr.CodeQueryInvalidInput, "retrieval: n must be at least 1, got %d", n)
	}
	if !scope.Valid() {
		return nil, apperr.Errorf(apperr.CodeQueryInvalidInput, "retrieval: scope %q needs both a case id and a question id", scope.String())
	}

	c, err := s.Corpus(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := s.Embedder(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := s.embed(ctx, emb, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != c.Dim() {
		return nil, apperr.New(apperr.CodeEmbedFailure,
			fmt.Sprintf("retrieval: query vector has dimension %d but the index holds %d", len(vec), c.Dim()))
	}

	// Nothing beyond the corpus can be returned, so n is capped there
	// before it scales the candidate count.
	candidates, err := c.Search(vec, s.overfetch.K(min(n, c.Len())))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternalFailure, "retrieval: searching index")
	}

	out = filterScope(candidates, scope, n)
	if len(out) == 0 {
		metrics.EmptyResultsTotal.Inc()
		s.log.Warn("no neighbors in scope",
			zap.String("case_id", string(scope.Case)),
			zap.String("question_id", string(scope.Question)),
			zap.Int("candidates", len(candidates)))
	}
	return out, nil
}

// filterScope keeps candidates in scope, preserving order, up to n.
func filterScope(candidates []domain.Neighbor, scope domain.Scope, n int) []domain.Neighbor {
	out := make([]domain.Neighbor, 0, min(n, len(candidates)))
	for _, cand := range candidates {
		if !cand.Record.InScope(scope) {
			continue
		}
		out = append(out, cand)
		if len(out) == n {
			break
		}
	}
	return out
}

func (s *Store) embed(ctx context.Context, emb embedding.Embedder, text string) ([]float32, error) {
	s.embedMu.Lock()
	defer s.embedMu.Unlock()

	vec, err := emb.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	s.log.Debug("embedding failed", zap.String("embedder", emb.Name()), zap.Error(err))
	if errors.Is(err, embedding.ErrEmptyText) {
		return nil, apperr.Wrap(err, apperr.CodeEmbedInvalidInput, "retrieval: embedding query")
	}
	return nil, apperr.Wrap(err, apperr.CodeEmbedFailure, "retrieval: embedding query")
}

func (s *Store) loadIndex(ctx context.Context) (*index.Flat, error) {
	start := time.Now()
	plain, err := s.open(ctx, "index", s.cfg.IndexSource)
	if err != nil {
		return nil, err
	}
	ix, err := index.Decode(plain)
	if err != nil {
		s.loaded("index", start, err)
		return nil, err
	}
	s.loaded("index", start, nil,
		zap.Int("vectors", ix.Len()),
		zap.Int("dimension", ix.Dim()),
		zap.Stringer("metric", ix.Metric()))
	return ix, nil
}

func (s *Store) loadMetadata(ctx context.Context) (*metadata.Table, error) {
	start := time.Now()
	plain, err := s.open(ctx, "metadata", s.cfg.MetadataSource)
	if err != nil {
		return nil, err
	}
	tbl, err := metadata.Decode(plain)
	if err != nil {
		s.loaded("metadata", start, err)
		return nil, err
	}
	s.loaded("metadata", start, nil, zap.Int("records", tbl.Len()))
	return tbl, nil
}

func (s *Store) loadCorpus(ctx context.Context) (*corpus.Corpus, error) {
	ix, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	tbl, err := s.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	c, err := corpus.New(ix, tbl)
	if err != nil {
		s.log.Error("index and metadata disagree", zap.Error(err))
		return nil, err
	}
	metrics.CorpusVectors.Set(float64(c.Len()))
	return c, nil
}

func (s *Store) loadEmbedder(ctx context.Context) (embedding.Embedder, error) {
	start := time.Now()
	emb, err := s.cfg.Registry.Load(ctx, s.cfg.Embedder)
	if err != nil {
		err = apperr.Wrap(err, apperr.CodeModelLoadFailure, "retrieval: loading embedding model",
			apperr.FieldResource("embedder"))
		s.loaded("embedder", start, err)
		return nil, err
	}
	s.loaded("embedder", start, nil,
		zap.String("provider", emb.Name()),
		zap.Int("dimension", emb.Dimension()))
	return emb, nil
}

// open reads and decrypts one artifact.
func (s *Store) open(ctx context.Context, resource string, src blob.Source) ([]byte, error) {
	start := time.Now()
	sealed, err := src.Read(ctx)
	if err != nil {
		s.loaded(resource, start, err)
		return nil, err
	}
	plain, err := s.cfg.Cipher.Decrypt(sealed)
	if err != nil {
		s.loaded(resource, start, err)
		return nil, err
	}
	return plain, nil
}

func (s *Store) loaded(resource string, start time.Time, err error, fields ...zap.Field) {
	elapsed := time.Since(start)
	metrics.ResourceLoadDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ResourceLoads.WithLabelValues(resource, "error").Inc()
		s.log.Error("resource load failed",
			zap.String("resource", resource),
			zap.String("kind", errorKind(err)),
			zap.Error(err))
		return
	}
	metrics.ResourceLoads.WithLabelValues(resource, "ok").Inc()
	s.log.Info("resource loaded",
		append([]zap.Field{zap.String("resource", resource), zap.Duration("duration", elapsed)}, fields...)...)
}

// isPermanent reports failures that retrying with the same key and bytes
// cannot fix.
func isPermanent(err error) bool {
	return apperr.IsDecryption(err) || apperr.IsFormat(err)
}

func errorKind(err error) string {
	switch {
	case apperr.IsDecryption(err):
		return "decryption"
	case apperr.IsFormat(err):
		return "format"
	case apperr.IsModelLoad(err):
		return "model_load"
	case apperr.IsEmbedding(err):
		return "embedding"
	case apperr.IsSourceRead(err):
		return "source_read"
	case apperr.IsInvalidInput(err):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
