// Package storage stores pedido attachments in an object bucket and hands
// out public and time-limited URLs for them.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrInvalidToken = errors.New("invalid or expired file token")
	ErrInvalidKey   = errors.New("invalid object key")
)

type PutInput struct {
	Key         string
	ContentType string
	Size        int64
}

// Storage is implemented by the S3 and Local drivers.
type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) error
	// PublicURL is the permanent URL persisted on the pedido row.
	PublicURL(key string) string
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, keys ...string) error
}
