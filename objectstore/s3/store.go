// Package s3 implements the CoraBooks object store on Amazon S3 and
// S3-compatible services such as MinIO and Backblaze B2.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/JohnyZhand/CoraBooks"
)

const defaultUploadTTL = time.Hour

// API defines the S3 operations used by Store.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Presigner defines the presigning operations used by Store.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config contains configuration for S3 storage.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool // For S3-compatible services like MinIO
	UploadTTL       time.Duration
}

// Store is an object store backed by one bucket. It is safe for concurrent use.
type Store struct {
	api       API
	presigner Presigner
	bucket    string
	endpoint  string
	uploadTTL time.Duration
	now       func() time.Time
}

// New loads the AWS configuration and creates a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("new s3 store: %w: bucket and region are required", corabooks.ErrInvalidInput)
	}

	awsOptions := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsOptions = append(awsOptions,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)),
		)
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewWithClient(client, s3.NewPresignClient(client), cfg), nil
}

// NewWithClient creates a Store on pre-configured clients.
func NewWithClient(api API, presigner Presigner, cfg Config) *Store {
	ttl := cfg.UploadTTL
	if ttl <= 0 {
		ttl = defaultUploadTTL
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	return &Store{
		api:       api,
		presigner: presigner,
		bucket:    cfg.Bucket,
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		uploadTTL: ttl,
		now:       time.Now,
	}
}

// Authorize checks that the credentials can reach the bucket.
func (s *Store) Authorize(ctx context.Context) (corabooks.ObjectSession, error) {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("authorize: %w: bucket %s not found", corabooks.ErrAuth, s.bucket)
		}
		return nil, classifyError(err, "authorize")
	}

	return &session{
		store: s,
		auth: corabooks.Authorization{
			APIURL:      s.endpoint,
			DownloadURL: s.endpoint + "/" + s.bucket,
		},
	}, nil
}

type session struct {
	store *Store
	auth  corabooks.Authorization
}

func (s *session) Authorization() corabooks.Authorization {
	return s.auth
}

// UploadTicket presigns a PUT bound to the declared content type and length.
func (s *session) UploadTicket(ctx context.Context, name, contentType string, size int64) (corabooks.UploadTicket, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.store.bucket),
		Key:    aws.String(name),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}

	req, err := s.store.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(s.store.uploadTTL))
	if err != nil {
		return corabooks.UploadTicket{}, classifyError(err, "presign upload "+name)
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for k, v := range req.SignedHeader {
		if strings.EqualFold(k, "Host") {
			continue
		}
		headers[k] = strings.Join(v, ",")
	}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	method := req.Method
	if method == "" {
		method = http.MethodPut
	}

	return corabooks.UploadTicket{
		UploadURL:  req.URL,
		ObjectName: name,
		Method:     method,
		Headers:    headers,
		ExpiresAt:  s.store.now().Add(s.store.uploadTTL),
	}, nil
}

// FindByExactName lists at most one key starting with name and accepts it only
// when the key equals name.
func (s *session) FindByExactName(ctx context.Context, name string) (corabooks.ObjectInfo, error) {
	out, err := s.store.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.store.bucket),
		Prefix:  aws.String(name),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return corabooks.ObjectInfo{}, classifyError(err, "find "+name)
	}

	for _, obj := range out.Contents {
		if aws.ToString(obj.Key) != name {
			continue
		}
		return corabooks.ObjectInfo{
			Name:         name,
			ID:           name,
			Size:         aws.ToInt64(obj.Size),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
			LastModified: aws.ToTime(obj.LastModified),
		}, nil
	}

	return corabooks.ObjectInfo{}, fmt.Errorf("find %s: %w", name, corabooks.ErrNotFound)
}

func (s *session) DeleteObject(ctx context.Context, info corabooks.ObjectInfo) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.store.bucket),
		Key:    aws.String(info.Name),
	}
	if info.ID != "" && info.ID != info.Name {
		input.VersionId = aws.String(info.ID)
	}

	if _, err := s.store.api.DeleteObject(ctx, input); err != nil {
		return classifyError(err, "delete "+info.Name)
	}
	return nil
}

// DownloadAuthorization presigns a GET for the object named prefix. S3 cannot
// scope a presigned URL to a prefix, so the grant covers exactly that key.
func (s *session) DownloadAuthorization(ctx context.Context, prefix string, ttl time.Duration) (corabooks.DownloadGrant, error) {
	req, err := s.store.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.store.bucket),
		Key:    aws.String(prefix),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return corabooks.DownloadGrant{}, classifyError(err, "presign download "+prefix)
	}

	return corabooks.DownloadGrant{
		URL:       req.URL,
		ExpiresAt: s.store.now().Add(ttl),
	}, nil
}

func (s *session) Open(ctx context.Context, name string) (io.ReadSeekCloser, corabooks.ObjectInfo, error) {
	head, err := s.store.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.store.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, corabooks.ObjectInfo{}, classifyError(err, "open "+name)
	}

	info := corabooks.ObjectInfo{
		Name:         name,
		ID:           name,
		Size:         aws.ToInt64(head.ContentLength),
		ContentType:  aws.ToString(head.ContentType),
		ETag:         strings.Trim(aws.ToString(head.ETag), `"`),
		LastModified: aws.ToTime(head.LastModified),
	}

	return newObjectReader(ctx, s.store.api, s.store.bucket, name, info.Size), info, nil
}
