package s3_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JohnyZhand/CoraBooks"
	s3store "github.com/JohnyZhand/CoraBooks/objectstore/s3"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func (m *mockAPI) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *mockAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *mockAPI) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *mockAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

func (m *mockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

var testConfig = s3store.Config{
	Bucket:    "books",
	Region:    "us-east-1",
	Endpoint:  "http://localhost:9000/",
	UploadTTL: 30 * time.Minute,
}

func authorized(t *testing.T, api *mockAPI, presigner *mockPresigner) corabooks.ObjectSession {
	t.Helper()

	api.On("HeadBucket", mock.Anything, mock.MatchedBy(func(in *s3.HeadBucketInput) bool {
		return aws.ToString(in.Bucket) == "books"
	})).Return(&s3.HeadBucketOutput{}, nil).Once()

	sess, err := s3store.NewWithClient(api, presigner, testConfig).Authorize(context.Background())
	require.NoError(t, err)
	return sess
}

func TestNew(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		store, err := s3store.New(context.Background(), s3store.Config{
			Bucket:          "books",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:9000",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			ForcePathStyle:  true,
		})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := s3store.New(context.Background(), s3store.Config{Region: "us-east-1"})
		assert.ErrorIs(t, err, corabooks.ErrInvalidInput)
	})
}

func TestStore_Authorize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		auth := sess.Authorization()
		assert.Equal(t, "http://localhost:9000", auth.APIURL)
		assert.Equal(t, "http://localhost:9000/books", auth.DownloadURL)
		api.AssertExpectations(t)
	})

	t.Run("access denied", func(t *testing.T) {
		api := &mockAPI{}
		api.On("HeadBucket", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"})

		_, err := s3store.NewWithClient(api, &mockPresigner{}, testConfig).Authorize(context.Background())
		assert.ErrorIs(t, err, corabooks.ErrAuth)
	})

	t.Run("missing bucket", func(t *testing.T) {
		api := &mockAPI{}
		api.On("HeadBucket", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "NotFound"})

		_, err := s3store.NewWithClient(api, &mockPresigner{}, testConfig).Authorize(context.Background())
		assert.ErrorIs(t, err, corabooks.ErrAuth)
	})

	t.Run("other failure is not auth", func(t *testing.T) {
		api := &mockAPI{}
		api.On("HeadBucket", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		_, err := s3store.NewWithClient(api, &mockPresigner{}, testConfig).Authorize(context.Background())
		require.Error(t, err)
		assert.NotErrorIs(t, err, corabooks.ErrAuth)
	})
}

func TestSession_UploadTicket(t *testing.T) {
	api := &mockAPI{}
	presigner := &mockPresigner{}
	sess := authorized(t, api, presigner)

	presigner.On("PresignPutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "abc.pdf" &&
			aws.ToString(in.ContentType) == "application/pdf" &&
			aws.ToInt64(in.ContentLength) == 1000
	})).Return(&v4.PresignedHTTPRequest{
		URL:    "http://localhost:9000/books/abc.pdf?X-Amz-Signature=sig",
		Method: http.MethodPut,
		SignedHeader: http.Header{
			"Host":           []string{"localhost:9000"},
			"Content-Length": []string{"1000"},
		},
	}, nil)

	ticket, err := sess.UploadTicket(context.Background(), "abc.pdf", "application/pdf", 1000)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/books/abc.pdf?X-Amz-Signature=sig", ticket.UploadURL)
	assert.Equal(t, http.MethodPut, ticket.Method)
	assert.Equal(t, "abc.pdf", ticket.ObjectName)
	assert.Equal(t, "1000", ticket.Headers["Content-Length"])
	assert.Equal(t, "application/pdf", ticket.Headers["Content-Type"])
	assert.NotContains(t, ticket.Headers, "Host")
	assert.False(t, ticket.ExpiresAt.IsZero())
	presigner.AssertExpectations(t)
}

func TestSession_FindByExactName(t *testing.T) {
	modified := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("exact match", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
			return aws.ToString(in.Prefix) == "abc.pdf" && aws.ToInt32(in.MaxKeys) == 1
		})).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{{
				Key:          aws.String("abc.pdf"),
				Size:         aws.Int64(1000),
				ETag:         aws.String(`"etag"`),
				LastModified: aws.Time(modified),
			}},
		}, nil)

		info, err := sess.FindByExactName(context.Background(), "abc.pdf")
		require.NoError(t, err)
		assert.Equal(t, "abc.pdf", info.Name)
		assert.Equal(t, int64(1000), info.Size)
		assert.Equal(t, "etag", info.ETag)
		assert.True(t, info.LastModified.Equal(modified))
	})

	t.Run("prefix match only", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("ListObjectsV2", mock.Anything, mock.Anything).Return(&s3.ListObjectsV2Output{
			Contents: []types.Object{{Key: aws.String("abc.pdf.old"), Size: aws.Int64(5)}},
		}, nil)

		_, err := sess.FindByExactName(context.Background(), "abc.pdf")
		assert.ErrorIs(t, err, corabooks.ErrNotFound)
	})

	t.Run("list failure", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("ListObjectsV2", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "InvalidAccessKeyId"})

		_, err := sess.FindByExactName(context.Background(), "abc.pdf")
		assert.ErrorIs(t, err, corabooks.ErrAuth)
	})
}

func TestSession_DeleteObject(t *testing.T) {
	t.Run("plain key", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
			return aws.ToString(in.Key) == "abc.pdf" && in.VersionId == nil
		})).Return(&s3.DeleteObjectOutput{}, nil)

		err := sess.DeleteObject(context.Background(), corabooks.ObjectInfo{Name: "abc.pdf", ID: "abc.pdf"})
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("versioned object", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
			return aws.ToString(in.VersionId) == "v1"
		})).Return(&s3.DeleteObjectOutput{}, nil)

		err := sess.DeleteObject(context.Background(), corabooks.ObjectInfo{Name: "abc.pdf", ID: "v1"})
		require.NoError(t, err)
		api.AssertExpectations(t)
	})
}

func TestSession_DownloadAuthorization(t *testing.T) {
	presigner := &mockPresigner{}
	sess := authorized(t, &mockAPI{}, presigner)

	presigner.On("PresignGetObject", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Key) == "abc.pdf"
	})).Return(&v4.PresignedHTTPRequest{URL: "http://localhost:9000/books/abc.pdf?sig=1"}, nil)

	grant, err := sess.DownloadAuthorization(context.Background(), "abc.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/books/abc.pdf?sig=1", grant.URL)
	assert.Empty(t, grant.Token)
	assert.False(t, grant.ExpiresAt.IsZero())
}

func rangeIs(want string) any {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.ToString(in.Range) == want
	})
}

func TestSession_Open(t *testing.T) {
	const content = "0123456789"

	t.Run("reads and seeks with ranged gets", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(int64(len(content))),
			ContentType:   aws.String("application/pdf"),
			ETag:          aws.String(`"e"`),
		}, nil)
		api.On("GetObject", mock.Anything, rangeIs("bytes=0-")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content))}, nil).Once()
		api.On("GetObject", mock.Anything, rangeIs("bytes=6-")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(content[6:]))}, nil).Once()

		r, info, err := sess.Open(context.Background(), "abc.pdf")
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, int64(10), info.Size)
		assert.Equal(t, "application/pdf", info.ContentType)
		assert.Equal(t, "e", info.ETag)

		end, err := r.Seek(0, io.SeekEnd)
		require.NoError(t, err)
		assert.Equal(t, int64(10), end)

		_, err = r.Seek(0, io.SeekStart)
		require.NoError(t, err)

		buf := make([]byte, 4)
		_, err = io.ReadFull(r, buf)
		require.NoError(t, err)
		assert.Equal(t, "0123", string(buf))

		_, err = r.Seek(6, io.SeekStart)
		require.NoError(t, err)
		rest, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "6789", string(rest))

		_, err = r.Seek(-1, io.SeekStart)
		assert.Error(t, err)

		api.AssertExpectations(t)
	})

	t.Run("missing object", func(t *testing.T) {
		api := &mockAPI{}
		sess := authorized(t, api, &mockPresigner{})

		api.On("HeadObject", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "NotFound"})

		_, _, err := sess.Open(context.Background(), "missing.pdf")
		assert.ErrorIs(t, err, corabooks.ErrNotFound)
	})
}
