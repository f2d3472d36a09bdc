/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package media

import (
	"context"
	"fmt"
	"io"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/suparena/pressbox/awsx"
)

const testBucket = "pressbox-media-test"

// fakeS3 records requests and replays canned responses.
type fakeS3 struct {
	putInputs    []*s3.PutObjectInput
	putBodies    [][]byte
	headInputs   []*s3.HeadObjectInput
	deleteInputs []*s3.DeleteObjectInput

	putErr    error
	headOut   *s3.HeadObjectOutput
	headErr   error
	deleteErr error
}

var _ awsx.S3API = (*fakeS3)(nil)

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putInputs = append(f.putInputs, params)
	if params.Body != nil {
		body, err := io.ReadAll(params.Body)
		if err != nil {
			return nil, err
		}
		f.putBodies = append(f.putBodies, body)
	} else {
		f.putBodies = append(f.putBodies, nil)
	}
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, fmt.Errorf("GetObject not expected in this test")
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.headInputs = append(f.headInputs, params)
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.headOut != nil {
		return f.headOut, nil
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleteInputs = append(f.deleteInputs, params)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

// fakePresign applies the presign options so tests can see the effective
// expiry, and fabricates a URL from the request.
type fakePresign struct {
	getInputs  []*s3.GetObjectInput
	putInputs  []*s3.PutObjectInput
	expiries   []int64
	presignErr error
}

var _ awsx.S3PresignAPI = (*fakePresign)(nil)

func (f *fakePresign) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.getInputs = append(f.getInputs, params)
	f.expiries = append(f.expiries, int64(opts.Expires.Seconds()))
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return &v4.PresignedHTTPRequest{
		URL:    fmt.Sprintf("https://%s.s3.amazonaws.com/%s?X-Amz-Expires=%d", *params.Bucket, *params.Key, int64(opts.Expires.Seconds())),
		Method: "GET",
	}, nil
}

func (f *fakePresign) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.putInputs = append(f.putInputs, params)
	f.expiries = append(f.expiries, int64(opts.Expires.Seconds()))
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	return &v4.PresignedHTTPRequest{
		URL:    fmt.Sprintf("https://%s.s3.amazonaws.com/%s?X-Amz-Expires=%d", *params.Bucket, *params.Key, int64(opts.Expires.Seconds())),
		Method: "PUT",
	}, nil
}

// fakeCloudFront records invalidation requests.
type fakeCloudFront struct {
	inputs []*cloudfront.CreateInvalidationInput
	err    error
}

var _ awsx.CloudFrontAPI = (*fakeCloudFront)(nil)

func (f *fakeCloudFront) CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	id := "I2FWZ0EXAMPLE"
	return &cloudfront.CreateInvalidationOutput{
		Invalidation: &cftypes.Invalidation{Id: &id},
	}, nil
}

func newTestStore(t *testing.T, client *fakeS3, presigner *fakePresign) *Store {
	t.Helper()
	store, err := NewStore(client, presigner, testBucket, "https://cdn.pressbox.dev")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}
