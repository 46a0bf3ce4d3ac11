// Package deploy uploads a built site to an S3 bucket.
//
// Fingerprinted bundles are cached for a year. Pages, the manifest and
// copied images are revalidated on every request.
package deploy

import (
	"bytes"
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/sitepack/internal/errors"
	"github.com/vango-dev/sitepack/internal/manifest"
)

const (
	// CacheImmutable is sent with content-hashed files.
	CacheImmutable = "public, max-age=31536000, immutable"

	// CacheRevalidate is sent with everything else.
	CacheRevalidate = "no-cache"
)

var hashedName = regexp.MustCompile(`\.[0-9A-Za-z]{8}\.[0-9A-Za-z]+$`)

// Uploader is the part of *s3.Client the publisher uses.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	Bucket string

	// Prefix is prepended to every key.
	Prefix string

	// Concurrency bounds parallel uploads. Defaults to 8.
	Concurrency int

	// DryRun plans the upload without sending anything.
	DryRun bool

	// Fs is the filesystem the publish directory is read from.
	Fs afero.Fs

	Logger zerolog.Logger
}

// Object is one file to upload.
type Object struct {
	Key          string
	Path         string
	Size         int64
	ContentType  string
	CacheControl string
}

// Report summarizes a publish.
type Report struct {
	Objects []Object
	Bytes   int64
}

// Publisher uploads directories to a bucket.
type Publisher struct {
	client Uploader
	opts   Options
}

// New creates a publisher.
func New(client Uploader, opts Options) (*Publisher, error) {
	if opts.Bucket == "" {
		return nil, errors.New("E142").
			WithSuggestion("Set deploy.bucket in the project file or pass --bucket")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	return &Publisher{client: client, opts: opts}, nil
}

// NewS3Client creates an S3 client for region using the standard AWS
// environment credentials.
func NewS3Client(region string) *s3.Client {
	if region == "" {
		region = firstEnv("AWS_REGION", "AWS_DEFAULT_REGION")
	}
	return s3.New(s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	})
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("E141").
			WithDetail("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Plan lists the objects for every file under dir, sorted by key. Files the
// build manifest names, and files whose name carries a hash segment, are
// marked immutable.
func Plan(fsys afero.Fs, dir, prefix string) ([]Object, error) {
	if ok, _ := afero.DirExists(fsys, dir); !ok {
		return nil, errors.New("E140").
			WithDetail("Publish directory " + dir + " does not exist").
			WithSuggestion("Run sitepack build first")
	}

	m, err := manifest.Load(fsys, filepath.Join(dir, manifest.Name))
	if err != nil {
		m = manifest.New()
	}

	var objects []Object
	err = afero.Walk(fsys, dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		objects = append(objects, Object{
			Key:          path.Join(prefix, rel),
			Path:         p,
			Size:         info.Size(),
			ContentType:  contentType(p),
			CacheControl: cacheControl(rel, m.Fingerprinted(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, errors.New("E140").Wrap(err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Publish uploads every file under dir.
func (p *Publisher) Publish(ctx context.Context, dir string) (*Report, error) {
	objects, err := Plan(p.opts.Fs, dir, p.opts.Prefix)
	if err != nil {
		return nil, err
	}

	report := &Report{Objects: objects}
	for _, o := range objects {
		report.Bytes += o.Size
	}
	if p.opts.DryRun {
		for _, o := range objects {
			p.opts.Logger.Info().Str("key", o.Key).Str("cache", o.CacheControl).Msg("would upload")
		}
		return report, nil
	}

	var uploaded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, o := range objects {
		g.Go(func() error {
			if err := p.upload(gctx, o); err != nil {
				return errors.New("E141").Wrap(err).WithDetail("Uploading " + o.Key)
			}
			uploaded.Add(1)
			p.opts.Logger.Debug().Str("key", o.Key).Int64("bytes", o.Size).Msg("uploaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.opts.Logger.Info().
		Str("bucket", p.opts.Bucket).
		Int64("objects", uploaded.Load()).
		Int64("bytes", report.Bytes).
		Msg("published")
	return report, nil
}

func (p *Publisher) upload(ctx context.Context, o Object) error {
	data, err := afero.ReadFile(p.opts.Fs, o.Path)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.opts.Bucket),
		Key:          aws.String(o.Key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(o.ContentType),
		CacheControl: aws.String(o.CacheControl),
	})
	return err
}

func contentType(p string) string {
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func cacheControl(rel string, fingerprinted bool) string {
	if fingerprinted || hashedName.MatchString(path.Base(rel)) {
		return CacheImmutable
	}
	return CacheRevalidate
}
