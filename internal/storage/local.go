package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Local keeps objects on disk under BaseDir/Bucket. Signed URLs point at the
// API's /files route and carry a short-lived HS256 token bound to the key.
type Local struct {
	BaseDir       string
	Bucket        string
	PublicBaseURL string
	secret        []byte
}

func NewLocal(baseDir, bucket, publicBaseURL, secret string) *Local {
	return &Local{BaseDir: baseDir, Bucket: bucket, PublicBaseURL: publicBaseURL, secret: []byte(secret)}
}

func (l *Local) path(key string) (string, error) {
	key, err := validKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.BaseDir, l.Bucket, filepath.FromSlash(key)), nil
}

func (l *Local) Put(ctx context.Context, r io.Reader, in PutInput) error {
	_ = ctx

	dst, err := l.path(in.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", in.Key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write %s: %w", in.Key, err)
	}
	return f.Close()
}

func (l *Local) PublicURL(key string) string {
	return publicURL(l.PublicBaseURL, l.Bucket, key)
}

type fileClaims struct {
	jwt.RegisteredClaims
}

func (l *Local) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx

	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, fileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return strings.TrimRight(l.PublicBaseURL, "/") + "/files/" + escapeKey(key) + "?token=" + url.QueryEscape(signed), nil
}

// Open verifies a signed URL token for key and opens the object.
func (l *Local) Open(key, token string) (*os.File, error) {
	parsed, err := jwt.ParseWithClaims(token, &fileClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return l.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*fileClaims)
	if !ok || !parsed.Valid || claims.Subject != key {
		return nil, ErrInvalidToken
	}
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

func (l *Local) Remove(ctx context.Context, keys ...string) error {
	_ = ctx

	var errs []error
	for _, k := range keys {
		p, err := l.path(k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Local) String() string { return fmt.Sprintf("local(%s)", l.BaseDir) }
