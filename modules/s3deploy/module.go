// Package s3deploy provides the 's3deploy' action handler, which uploads an
// input artifact tree to an S3 bucket.
package s3deploy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
)

// Name is the handler name actions refer to with `uses`.
const Name = "s3deploy"

// DefaultContentType is used when the extension of a file is unknown.
const DefaultContentType = "application/octet-stream"

// ErrNoClient is returned when the module was registered without a client.
var ErrNoClient = errors.New("s3 client is not configured")

// API is the subset of the S3 client used by the handler.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client from cfg. A non-empty endpoint replaces the
// AWS endpoint and switches to path-style addressing, as S3-compatible
// stores such as MinIO or LocalStack expect.
func NewClient(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
}

// Module implements the handlers.Module interface for this package.
type Module struct {
	Client API
}

// Register registers the handler with the registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register(Name, &uploader{client: m.Client})
}

type uploader struct {
	client API
}

// Run uploads every regular file of the `source` input (the first input by
// default) to `bucket` below `prefix`. Directories named in `exclude` are
// skipped; ".git" is always skipped.
func (u *uploader) Run(ctx context.Context, req *handlers.Request) (*handlers.Result, error) {
	logger := ctxlog.FromContext(ctx)
	if u.client == nil {
		return nil, ErrNoClient
	}

	bucket, err := req.RequiredConfig("bucket")
	if err != nil {
		return nil, err
	}
	prefix, err := req.ConfigString("prefix", "")
	if err != nil {
		return nil, err
	}
	cacheControl, err := req.ConfigString("cache_control", "")
	if err != nil {
		return nil, err
	}
	exclude, err := req.ConfigStrings("exclude")
	if err != nil {
		return nil, err
	}
	dir, err := sourceDir(req)
	if err != nil {
		return nil, err
	}

	skip := map[string]bool{".git": true}
	for _, name := range exclude {
		skip[name] = true
	}

	var uploaded int
	var bytes int64
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := objectKey(prefix, rel)
		n, err := u.put(ctx, bucket, key, p, cacheControl)
		if err != nil {
			return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
		}
		logger.Debug("S3deploy: Uploaded object.", "key", key, "size", n)
		uploaded++
		bytes += n
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("☁️ Deployed to S3", "bucket", bucket, "prefix", prefix, "object_count", uploaded, "bytes", bytes)
	return &handlers.Result{}, nil
}

func (u *uploader) put(ctx context.Context, bucket, key, file, cacheControl string) (int64, error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(key)),
	}
	if cacheControl != "" {
		in.CacheControl = aws.String(cacheControl)
	}
	if _, err := u.client.PutObject(ctx, in); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func sourceDir(req *handlers.Request) (string, error) {
	source, err := req.ConfigString("source", "")
	if err != nil {
		return "", err
	}
	if source == "" {
		dir, ok := req.FirstInput()
		if !ok {
			return "", fmt.Errorf("action '%s' has no input artifact to deploy", req.Action.Name)
		}
		return dir, nil
	}
	dir, ok := req.Inputs[source]
	if !ok {
		return "", fmt.Errorf("source '%s' of action '%s' is not one of its inputs", source, req.Action.Name)
	}
	return dir, nil
}

func objectKey(prefix, rel string) string {
	key := filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func contentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return DefaultContentType
}
