// Package s3 provides a bdk.RawSource over objects in an S3 bucket, so the
// raw dumps can be extracted straight from cloud storage.
package s3

import (
	"compress/gzip"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
)

// RawSource is a bdk.RawSource which reads the objects under a bucket prefix
// in listing order.
type RawSource struct {
	bucket string
	prefix string
	region string

	s3      *s3.S3
	sess    *session.Session
	objects []*s3.Object
	objIdx  *uint64
}

// NewRawSource lists the objects matching prefix in bucket and returns a
// RawSource over them.
func NewRawSource(region, bucket, prefix string) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		region: region,
		bucket: bucket,
		prefix: prefix,

		objIdx: &idx,
	}
	var err error
	rs.sess, err = session.NewSession(&aws.Config{
		Region: aws.String(rs.region)},
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	rs.s3 = s3.New(rs.sess)
	resp, err := rs.s3.ListObjects(&s3.ListObjectsInput{Bucket: aws.String(rs.bucket), Prefix: aws.String(rs.prefix)})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	rs.objects = resp.Contents

	return rs, nil
}

// Len returns the number of objects the source will read. Zero means the
// prefix matched nothing - the caller decides whether that is fatal.
func (rs *RawSource) Len() int {
	return len(rs.objects)
}

// NextReader implements bdk.RawSource.
func (rs *RawSource) NextReader() (bdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(*obj.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	if strings.HasSuffix(*obj.Key, ".gz") {
		gz, err := gzip.NewReader(result.Body)
		if err != nil {
			result.Body.Close()
			return nil, errors.Wrapf(err, "gunzipping %v", *obj.Key)
		}
		return &objReader{name: *obj.Key, body: gz, raw: result.Body}, nil
	}
	return &objReader{name: *obj.Key, body: result.Body}, nil
}

type objReader struct {
	name string
	body io.ReadCloser

	// raw is the underlying object body when body wraps it for
	// decompression.
	raw io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	if err := o.body.Close(); err != nil {
		if o.raw != nil {
			o.raw.Close()
		}
		return err
	}
	if o.raw != nil {
		return o.raw.Close()
	}
	return nil
}

func (o *objReader) Name() string {
	return o.name
}
