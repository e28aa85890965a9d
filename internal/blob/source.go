// Package blob reads the sealed artifacts from local files or object storage.
// Sources are read-only.
package blob

import (
	"context"
	"os"
	"strings"

	apperr "caseprep/internal/errors"
)

// Source yields the full contents of one sealed artifact.
type Source interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// File reads a local file.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) Name() string { return f.path }

func (f *File) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeSourceReadFailure, "reading "+f.path, apperr.FieldSource(f.path))
	}
	return data, nil
}

// Bytes serves an in-memory artifact.
type Bytes struct {
	name string
	data []byte
}

func NewBytes(name string, data []byte) *Bytes { return &Bytes{name: name, data: data} }

func (b *Bytes) Name() string { return b.name }

func (b *Bytes) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Open resolves a source location:
//
//	s3://bucket/key   object in S3-compatible storage (needs objects)
//	file:///path      local file
//	/path, ./path     local file
func Open(location string, objects *ObjectStore) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, apperr.New(apperr.CodeStoreConfigInvalid, "blob location is empty")
	case strings.HasPrefix(location, s3Scheme):
		bucket, key, err := parseObjectLocation(location)
		if err != nil {
			return nil, err
		}
		if objects == nil {
			return nil, apperr.Errorf(apperr.CodeStoreConfigInvalid, "%s needs object_storage to be configured", location)
		}
		return objects.Object(bucket, key), nil
	case strings.HasPrefix(location, "file://"):
		return NewFile(strings.TrimPrefix(location, "file://")), nil
	case strings.Contains(location, "://"):
		return nil, apperr.Errorf(apperr.CodeStoreConfigInvalid, "unsupported blob location %q", location)
	default:
		return NewFile(location), nil
	}
}
