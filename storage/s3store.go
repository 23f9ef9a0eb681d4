package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dlunire/dlstorage-go/container"
	"github.com/dlunire/dlstorage-go/rangeio"
)

// DefaultRegion is used when S3Config.Region is empty.
const DefaultRegion = "us-east-1"

// S3Config configures an S3-compatible backend.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint for MinIO, R2, etc.
	AccessKey string
	SecretKey string
	Prefix    string // key prefix standing in for the document root
	PathStyle bool

	// StorageDir is the managed subdirectory below Prefix, as
	// storagepath.Resolver.StorageDir. Empty places containers directly
	// under Prefix.
	StorageDir string
}

func (c *S3Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

func (c *S3Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: access key and secret key are required", ErrInvalidConfig)
	}
	return nil
}

// s3API is the subset of *s3.Client used by S3Backend.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backend implements Backend on S3-compatible object storage.
// Objects are keyed {prefix}/{storageDir}/{name}.dlstorage, or
// {prefix}/{name}.dlstorage for bare refs. Reads fetch only the requested
// byte ranges.
type S3Backend struct {
	client     s3API
	bucket     string
	prefix     string
	storageDir string
}

// Compile-time interface check.
var _ Backend = (*S3Backend)(nil)

// NewS3Backend creates a backend from cfg using static credentials.
func NewS3Backend(cfg S3Config) (*S3Backend, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		},
	}
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return newS3Backend(s3.New(s3.Options{}, opts...), cfg.Bucket, cfg.Prefix, cfg.StorageDir), nil
}

func newS3Backend(client s3API, bucket, prefix, storageDir string) *S3Backend {
	return &S3Backend{
		client:     client,
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		storageDir: strings.Trim(strings.ReplaceAll(storageDir, `\`, "/"), "/"),
	}
}

// storagePrefix returns the key prefix of non-bare containers, with a
// trailing slash, or "" when containers sit at the bucket root.
func (b *S3Backend) storagePrefix() string {
	if p := b.join(b.storageDir); p != "" {
		return p + "/"
	}
	return ""
}

// join joins the key prefix and parts with "/", skipping empty elements.
func (b *S3Backend) join(parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	for _, p := range append([]string{b.prefix}, parts...) {
		if p != "" {
			elems = append(elems, p)
		}
	}
	return strings.Join(elems, "/")
}

// Key returns the object key of the container for ref.
func (b *S3Backend) Key(ref Ref) (string, error) {
	name, err := ref.clean()
	if err != nil {
		return "", err
	}
	if ref.Bare {
		return b.join(name + container.Extension), nil
	}
	return b.join(b.storageDir, name+container.Extension), nil
}

// Write uploads data as the container for ref.
func (b *S3Backend) Write(ctx context.Context, ref Ref, data []byte) error {
	key, err := b.Key(ref)
	if err != nil {
		return err
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return wrapS3Error(err, ErrIOFailure)
	}
	return nil
}

// Open stats the object for ref and returns a Source issuing ranged GETs.
func (b *S3Backend) Open(ctx context.Context, ref Ref) (rangeio.Source, error) {
	key, err := b.Key(ref)
	if err != nil {
		return nil, err
	}

	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err, ErrIOFailure)
	}

	return &s3Object{
		ctx:    ctx,
		client: b.client,
		bucket: b.bucket,
		key:    key,
		size:   aws.ToInt64(out.ContentLength),
	}, nil
}

// Remove deletes the object for ref. S3 deletes are idempotent, so the
// object is stat'ed first to report ErrNotFound.
func (b *S3Backend) Remove(ctx context.Context, ref Ref) error {
	key, err := b.Key(ref)
	if err != nil {
		return err
	}

	if _, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return wrapS3Error(err, ErrIOFailure)
	}

	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapS3Error(err, ErrIOFailure)
	}
	return nil
}

// List returns the names of all containers under the storage prefix.
func (b *S3Backend) List(ctx context.Context) ([]string, error) {
	prefix := b.storagePrefix()
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrapS3Error(err, ErrIOFailure)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, container.Extension) {
				continue
			}
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(key, prefix), container.Extension))
		}
	}

	sort.Strings(names)
	return names, nil
}

// s3Object is a rangeio.Source over a single object. io.ReaderAt takes no
// context, so ReadAt uses the context of the Open call that created it; the
// source must not outlive that call.
type s3Object struct {
	ctx    context.Context
	client s3API
	bucket string
	key    string
	size   int64
}

func (o *s3Object) Size() (int64, error) { return o.size, nil }

func (o *s3Object) Close() error { return nil }

// ReadAt fetches len(p) bytes at off with a single ranged GET.
func (o *s3Object) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off >= o.size {
		return 0, io.EOF
	}

	out, err := o.client.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)),
	})
	if err != nil {
		return 0, wrapS3Error(err, ErrIOFailure)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// wrapS3Error maps S3 API errors onto this package's sentinels.
// The original error is formatted with %v so callers match sentinels only.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}
