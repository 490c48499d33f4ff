package ingest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is one stored video file.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is where source videos live.
type ObjectStore interface {
	// List returns every object under prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Download writes the object's content to w.
	Download(ctx context.Context, key string, w io.Writer) error
	// URL returns the public playback URL of key.
	URL(key string) string
}

// StoreConfig describes an S3-compatible bucket such as MinIO.
type StoreConfig struct {
	Endpoint  string `validate:"required"`
	AccessKey string `validate:"required"`
	SecretKey string `validate:"required"`
	Bucket    string `validate:"required"`
	Region    string `validate:"required"`
	Secure    bool
}

func (c StoreConfig) baseURL() string {
	if strings.Contains(c.Endpoint, "://") {
		return strings.TrimRight(c.Endpoint, "/")
	}
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimRight(c.Endpoint, "/")
}

// S3Store is an ObjectStore backed by an S3-compatible API.
type S3Store struct {
	client *s3.Client
	cfg    StoreConfig
}

// NewS3Store builds a path-style S3 client with static credentials, which is
// what MinIO expects.
func NewS3Store(ctx context.Context, cfg StoreConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("ingest: aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.baseURL())
		o.UsePathStyle = true
	})
	return &S3Store{client: client, cfg: cfg}, nil
}

// List implements ObjectStore.List.
func (s *S3Store) List(ctx context.Context, prefix string) ([]Object, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(s.cfg.Bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var out []Object
	pages := s3.NewListObjectsV2Paginator(s.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ingest: list %s/%s: %w", s.cfg.Bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

// Download implements ObjectStore.Download.
func (s *S3Store) Download(ctx context.Context, key string, w io.Writer) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("ingest: get %q: %w", key, err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("ingest: read %q: %w", key, err)
	}
	return nil
}

// URL implements ObjectStore.URL.
func (s *S3Store) URL(key string) string {
	return s.cfg.baseURL() + "/" + s.cfg.Bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

// SelectVideos keeps the .mp4 objects, smallest first, and applies limit
// when it is positive.
func SelectVideos(objects []Object, limit int) []Object {
	out := make([]Object, 0, len(objects))
	for _, o := range objects {
		if strings.HasSuffix(strings.ToLower(o.Key), ".mp4") {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Size < out[j].Size })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NormalizePrefix makes a non-empty prefix end in "/".
func NormalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
