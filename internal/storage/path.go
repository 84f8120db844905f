package storage

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// publicPrefix is the path segment public object URLs carry before the bucket.
const publicPrefix = "/storage/v1/object/public/"

func publicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + publicPrefix + bucket + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ObjectKey reduces a stored attachment reference to the object key. Full
// URLs are cut after "/<bucket>/" and unescaped; anything else is taken as a
// key already.
func ObjectKey(bucket, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrInvalidKey
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return validKey(ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	p := u.EscapedPath()
	marker := "/" + bucket + "/"
	idx := strings.Index(p, marker)
	if idx == -1 {
		return "", fmt.Errorf("%w: %q is not in bucket %s", ErrInvalidKey, ref, bucket)
	}
	key, err := url.PathUnescape(p[idx+len(marker):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return validKey(key)
}

func validKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return key, nil
}

// ObjectName builds the key for a new upload: <field>_<pedido>_<unixmillis>.<ext>.
func ObjectName(field string, pedidoID int64, filename string, now time.Time) string {
	name := field + "_" + strconv.FormatInt(pedidoID, 10) + "_" + strconv.FormatInt(now.UnixMilli(), 10)
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		name += "." + ext
	}
	return name
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true}

// IsImage reports whether the reference points at a previewable image.
func IsImage(ref string) bool {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	return imageExts[strings.ToLower(filepath.Ext(ref))]
}

var uploadExts = map[string]bool{".pdf": true, ".doc": true, ".docx": true, ".txt": true}

// AllowedUpload accepts any image plus pdf, doc, docx and txt files.
func AllowedUpload(filename, contentType string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return uploadExts[ext] || imageExts[ext] || ext == ".webp"
}
