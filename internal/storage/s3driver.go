package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// profileEnvVar is consulted for a credential profile when none is
// explicitly configured via S3Options.Profile.
const profileEnvVar = "REPO_PROFILE"

// S3Driver implements Backend over an S3-compatible object store bucket.
type S3Driver struct {
	client *s3.Client
	bucket string
	endpoint string
	profile string
}

// S3Options configures an S3Driver.
type S3Options struct {
	Bucket string
	Endpoint string // optional override, e.g. for S3-compatible stores
	Profile string // optional named credential profile
}

// NewS3Driver resolves credentials per the AWS SDK's standard chain (env,
// shared config, EC2/ECS role) and returns a bucket-scoped backend.
func NewS3Driver(ctx context.Context, opts S3Options) (*S3Driver, error) {
	if opts.Bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}

	profile := opts.Profile
	if profile == "" {
		profile = os.Getenv(profileEnvVar)
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrStorageUnavailable, err)
	}
	if profile != "" {
		cfg.Credentials = credentials.NewCredentialsCache(cfg.Credentials)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = &opts.Endpoint
			o.UsePathStyle = true
		}
	})

	return &S3Driver{
		client: client,
		bucket: opts.Bucket,
		endpoint: opts.Endpoint,
		profile: profile,
	}, nil
}

func (d *S3Driver) key(path string) string {
	return strings.TrimPrefix(path, "/")
}

func (d *S3Driver) Exists(ctx context.Context, path string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &d.bucket,
		Key: awsStr(d.key(path)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, classifyS3Err(err)
}

func (d *S3Driver) Read(ctx context.Context, path string) ([]byte, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &d.bucket,
		Key: awsStr(d.key(path)),
	})
	if err != nil {
		return nil, classifyS3Err(err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (d *S3Driver) Write(ctx context.Context, localPath, path string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	return d.WriteBytes(ctx, data, path)
}

func (d *S3Driver) WriteBytes(ctx context.Context, data []byte, path string) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &d.bucket,
		Key: awsStr(d.key(path)),
		Body: bytes.NewReader(data),
	})
	if err != nil {
		return classifyS3Err(err)
	}
	return nil
}

func (d *S3Driver) Delete(ctx context.Context, path string) error {
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &d.bucket,
		Key: awsStr(d.key(path)),
	})
	if err != nil && !isNotFound(err) {
		return classifyS3Err(err)
	}
	return nil
}

func (d *S3Driver) List(ctx context.Context, prefix, suffix string) ([]string, error) {
	p := d.key(prefix)
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	var names []string
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: &d.bucket,
		Prefix: &p,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Err(err)
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(*obj.Key, p)
			if rel == "" {
				continue
			}
			if suffix == "" || strings.HasSuffix(rel, suffix) {
				names = append(names, rel)
			}
		}
	}
	return names, nil
}

func (d *S3Driver) PullTree(ctx context.Context, remotePrefix, localDir string) ([]string, error) {
	rels, err := d.List(ctx, remotePrefix, "")
	if err != nil {
		return nil, err
	}
	var pulled []string
	for _, rel := range rels {
		data, err := d.Read(ctx, remotePrefix+"/"+rel)
		if err != nil {
			return pulled, err
		}
		dst := filepath.Join(localDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return pulled, err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return pulled, err
		}
		pulled = append(pulled, rel)
	}
	return pulled, nil
}

func (d *S3Driver) PushTree(ctx context.Context, localDir, remotePrefix string) ([]string, error) {
	var pushed []string
	err := filepath.Walk(localDir, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if err := d.Write(ctx, p, remotePrefix+"/"+rel); err != nil {
			return err
		}
		pushed = append(pushed, rel)
		return nil
	})
	return pushed, err
}

// Copy duplicates src to dst server-side via S3's CopyObject, avoiding a
// read-then-write round trip through the caller.
func (d *S3Driver) Copy(ctx context.Context, src, dst string) error {
	source := fmt.Sprintf("%s/%s", d.bucket, d.key(src))
	_, err := d.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket: &d.bucket,
		Key: awsStr(d.key(dst)),
		CopySource: &source,
	})
	if err != nil {
		return classifyS3Err(err)
	}
	return nil
}

func (d *S3Driver) Describe() map[string]string {
	m := map[string]string{
		"type": "s3",
		"bucket": d.bucket,
	}
	if d.endpoint != "" {
		m["endpoint"] = d.endpoint
	}
	if d.profile != "" {
		m["profile"] = d.profile
	}
	return m
}

func awsStr(s string) *string { return &s }

func isNotFound(err error) bool {
	var nf *s3types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func classifyS3Err(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}
	logrus.Debugf("storage(s3): transport error: %v", err)
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
