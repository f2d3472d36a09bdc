/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/suparena/pressbox/awsx"
	"github.com/suparena/pressbox/corpus"
	pberrors "github.com/suparena/pressbox/errors"
)

// Presign expiry bounds. S3 rejects presigned URLs that outlive a week.
const (
	DefaultPresignExpiry = 15 * time.Minute
	minPresignExpiry     = time.Minute
	maxPresignExpiry     = 7 * 24 * time.Hour
)

// cacheControl for uploaded objects. Keys are content-addressed, so the
// bytes under a key never change and edge caches can hold them forever.
const cacheControl = "public, max-age=31536000, immutable"

// Store holds article assets in a single S3 bucket.
type Store struct {
	client    awsx.S3API
	presigner awsx.S3PresignAPI
	bucket    string
	cdnBase   string
}

// NewStore constructs a media store over existing S3 clients. cdnBase may be
// empty when no CDN fronts the bucket.
func NewStore(client awsx.S3API, presigner awsx.S3PresignAPI, bucket, cdnBase string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("nil S3 client")
	}
	if bucket == "" {
		return nil, fmt.Errorf("empty bucket name")
	}
	return &Store{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		cdnBase:   strings.TrimSuffix(cdnBase, "/"),
	}, nil
}

// Checksum returns the full SHA-256 hex digest of the bytes. The digest is
// stored on MediaAsset records and drives dedupe lookups; object keys carry
// only its 16-character prefix.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ObjectKey returns the content-addressed S3 key for an asset:
// media/<article slug>/<checksum prefix>-<file name>. The checksum is
// shortened to 16 characters to keep keys readable in bucket listings.
func ObjectKey(articleSlug, fileName, checksum string) string {
	if len(checksum) > 16 {
		checksum = checksum[:16]
	}
	return fmt.Sprintf("media/%s/%s-%s", articleSlug, checksum, fileName)
}

// UploadInput carries one asset upload.
type UploadInput struct {
	ArticleSlug string
	FileName    string
	ContentType string
	Body        []byte
}

// Upload writes the asset to S3 under its content-addressed key and returns
// the MediaAsset record describing it. The record is not persisted here;
// the Library does that so uploads and records stay in one place.
func (s *Store) Upload(ctx context.Context, in UploadInput) (*corpus.MediaAsset, error) {
	if in.ArticleSlug == "" {
		return nil, pberrors.NewValidationError("articleSlug", "required")
	}
	if in.FileName == "" {
		return nil, pberrors.NewValidationError("fileName", "required")
	}
	if len(in.Body) == 0 {
		return nil, pberrors.NewValidationError("body", "empty upload")
	}

	// Strip any directory part a client smuggled into the file name.
	name := path.Base(in.FileName)
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	checksum := Checksum(in.Body)
	key := ObjectKey(in.ArticleSlug, name, checksum)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &s.bucket,
		Key:          &key,
		Body:         bytes.NewReader(in.Body),
		ContentType:  &contentType,
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", key, err)
	}

	return &corpus.MediaAsset{
		Key:         key,
		ArticleSlug: in.ArticleSlug,
		FileName:    name,
		ContentType: contentType,
		Checksum:    checksum,
		ByteSize:    int64(len(in.Body)),
		CDNPath:     "/" + key,
		CreatedAt:   corpus.Now(),
	}, nil
}

// PresignGet returns a time-limited download URL for the object. A zero
// expiry means DefaultPresignExpiry.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	d, err := presignExpiry(expiry)
	if err != nil {
		return "", err
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(d))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignUpload returns a time-limited upload URL for the key. The content
// type is part of the signature, so the uploader must send the same
// Content-Type header or the request is refused.
func (s *Store) PresignUpload(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	d, err := presignExpiry(expiry)
	if err != nil {
		return "", err
	}
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(d))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func presignExpiry(d time.Duration) (time.Duration, error) {
	if d == 0 {
		return DefaultPresignExpiry, nil
	}
	if d < minPresignExpiry || d > maxPresignExpiry {
		return 0, pberrors.NewValidationError("expiry",
			fmt.Sprintf("must be between %s and %s", minPresignExpiry, maxPresignExpiry))
	}
	return d, nil
}

// ObjectInfo is the metadata Head returns for an existing object.
type ObjectInfo struct {
	Key          string
	ContentType  string
	ByteSize     int64
	ETag         string
	LastModified time.Time
}

// Head returns object metadata, or nil when no object exists under the key.
func (s *Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("head %s: %w", key, err)
	}

	info := &ObjectInfo{Key: key}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.ContentLength != nil {
		info.ByteSize = *out.ContentLength
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

// Delete removes the object. S3 reports success for absent keys, so deletes
// are naturally idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// CDNURL returns the public URL for an object key, or the empty string when
// no CDN base is configured.
func (s *Store) CDNURL(key string) string {
	if s.cdnBase == "" {
		return ""
	}
	return s.cdnBase + "/" + key
}
