package blob

import (
	"context"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	apperr "caseprep/internal/errors"
)

const s3Scheme = "s3://"

// ObjectStoreConfig holds connection details for S3-compatible storage.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ObjectStore hands out Sources for objects in S3-compatible storage.
type ObjectStore struct {
	client *minio.Client
}

// NewObjectStore creates a MinIO client. No request is made until an object is read.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	// minio.New wants a bare host:port.
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	if endpoint == "" {
		return nil, apperr.New(apperr.CodeStoreConfigInvalid, "object storage endpoint is empty")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStoreConfigInvalid, "creating object storage client")
	}
	return &ObjectStore{client: client}, nil
}

// Object returns a Source for bucket/key.
func (s *ObjectStore) Object(bucket, key string) *Object {
	return &Object{client: s.client, bucket: bucket, key: key}
}

// Object reads one object in full.
type Object struct {
	client *minio.Client
	bucket string
	key    string
}

func (o *Object) Name() string { return s3Scheme + o.bucket + "/" + o.key }

func (o *Object) Read(ctx context.Context) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, o.readFailure(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, o.readFailure(err)
	}
	return data, nil
}

func (o *Object) readFailure(err error) error {
	msg := "reading " + o.Name()
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		msg += ": " + resp.Code
	}
	return apperr.Wrap(err, apperr.CodeSourceReadFailure, msg, apperr.FieldSource(o.Name()))
}

func parseObjectLocation(location string) (bucket, key string, err error) {
	parts := strings.SplitN(strings.TrimPrefix(location, s3Scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperr.Errorf(apperr.CodeStoreConfigInvalid, "invalid object location %q: expected s3://bucket/key", location)
	}
	return parts[0], parts[1], nil
}
