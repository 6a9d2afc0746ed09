// Package blob stores attachment contents in a gocloud.dev bucket.
//
// The bucket is selected by URL: mem:// for tests and single-node setups, file:///path
// for local disks, s3:// and gs:// for object storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/tnptm/next-djchat/internal/errors"

	// Register bucket drivers
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrNotFound indicates no blob exists under the key.
var ErrNotFound = apperrors.Wrap(apperrors.ErrNotFound, "blob not found")

// Store reads and writes attachment contents. Keys are opaque to callers outside this package.
type Store struct {
	bucket        *blob.Bucket
	publicBaseURL string
}

// Open opens the bucket at bucketURL.
func Open(ctx context.Context, bucketURL, publicBaseURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}
	return NewStore(bucket, publicBaseURL), nil
}

// NewStore wraps an already opened bucket.
func NewStore(bucket *blob.Bucket, publicBaseURL string) *Store {
	return &Store{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Put writes r under key. A failed copy aborts the write so no partial blob is left behind.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(writeCtx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to open blob writer: %w", err)
	}

	written, err := io.Copy(w, r)
	if err == nil && size >= 0 && written != size {
		err = apperrors.Wrapf(apperrors.ErrInvalidInput, "attachment declared %d bytes, received %d", size, written)
	}
	if err != nil {
		cancel()
		_ = w.Close()
		return apperrors.Wrap(err, "failed to write blob")
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to commit blob: %w", err)
	}
	return nil
}

// Open returns a reader for the blob under key. The caller closes it.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return r, nil
}

// Delete removes the blob under key. Deleting a missing blob succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// URL returns the caller-facing download location of an attachment.
func (s *Store) URL(attachmentID string) string {
	return s.publicBaseURL + "/v1/attachments/" + attachmentID
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}
