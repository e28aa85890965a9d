package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caseprep/internal/blob"
	"caseprep/internal/casebook"
	"caseprep/internal/config"
	"caseprep/internal/crypto"
	"caseprep/internal/domain"
	apperr "caseprep/internal/errors"
	"caseprep/internal/logger"
	"caseprep/internal/retrieval"
)

// app is the wired set of components a command works with.
type app struct {
	cfg     *config.AppConfig
	log     *zap.Logger
	cipher  crypto.Cipher
	objects *blob.ObjectStore
}

// newApp loads config, logger, cipher and object storage. It reads no artifacts.
func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfigValidateInvalid, "invalid log level")
	}

	key, err := crypto.ResolveKey(cfg.Key.Source)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.New(cfg.Key.Cipher, key)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, cipher: cipher}
	if opts, ok := cfg.ObjectStore(); ok {
		a.objects, err = blob.NewObjectStore(opts)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *app) store() (*retrieval.Store, error) {
	indexSrc, err := blob.Open(a.cfg.Store.Index, a.objects)
	if err != nil {
		return nil, err
	}
	metaSrc, err := blob.Open(a.cfg.Store.Metadata, a.objects)
	if err != nil {
		return nil, err
	}
	return retrieval.New(retrieval.Config{
		IndexSource:    indexSrc,
		MetadataSource: metaSrc,
		Cipher:         a.cipher,
		Embedder:       a.cfg.EmbeddingSpec(),
		Overfetch: retrieval.OverfetchPolicy{
			Fixed:  a.cfg.Store.Overfetch.Fixed,
			Factor: a.cfg.Store.Overfetch.Factor,
		},
		Logger: a.log,
	})
}

// casebook reads and decrypts the configured case catalogue.
func (a *app) casebook(ctx context.Context) (*casebook.Book, error) {
	if a.cfg.Store.Casebook == "" {
		return nil, apperr.New(apperr.CodeStoreConfigInvalid, "store.casebook is not configured")
	}
	src, err := blob.Open(a.cfg.Store.Casebook, a.objects)
	if err != nil {
		return nil, err
	}
	sealed, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	plain, err := a.cipher.Decrypt(sealed)
	if err != nil {
		return nil, err
	}
	return casebook.Decode(plain)
}

// scopeFlags reads --case, --question and --limit, falling back to store.default_n.
func (a *app) scopeFlags(cmd *cobra.Command) (domain.Scope, int) {
	caseID, _ := cmd.Flags().GetString("case")
	questionID, _ := cmd.Flags().GetString("question")
	n, _ := cmd.Flags().GetInt("limit")
	if n == 0 {
		n = a.cfg.Store.DefaultN
	}
	return domain.NewScope(caseID, questionID), n
}

func (a *app) close() {
	_ = a.log.Sync()
}
