package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var errNegativeOffset = errors.New("seek: negative position")

// objectReader reads an object with ranged GETs so that callers such as
// http.ServeContent can seek. The body is fetched lazily on the first Read
// after a Seek that moved the offset.
type objectReader struct {
	ctx    context.Context
	api    API
	bucket string
	key    string
	size   int64

	offset int64
	body   io.ReadCloser
}

func newObjectReader(ctx context.Context, api API, bucket, key string, size int64) *objectReader {
	return &objectReader{
		ctx:    ctx,
		api:    api,
		bucket: bucket,
		key:    key,
		size:   size,
	}
}

func (r *objectReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}

	if r.body == nil {
		out, err := r.api.GetObject(r.ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", r.offset)),
		})
		if err != nil {
			return 0, classifyError(err, "read "+r.key)
		}
		r.body = out.Body
	}

	n, err := r.body.Read(p)
	r.offset += int64(n)
	return n, err
}

func (r *objectReader) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.offset + offset
	case io.SeekEnd:
		next = r.size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errNegativeOffset
	}

	if next != r.offset {
		r.closeBody()
		r.offset = next
	}
	return next, nil
}

func (r *objectReader) Close() error {
	return r.closeBody()
}

func (r *objectReader) closeBody() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
