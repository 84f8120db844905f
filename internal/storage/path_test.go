package storage

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"public url", "https://x.supabase.co/storage/v1/object/public/archivos-ventas/foto_sello_12_1700000000000.png", "foto_sello_12_1700000000000.png"},
		{"escaped", "https://x.supabase.co/storage/v1/object/public/archivos-ventas/mi%20logo.pdf", "mi logo.pdf"},
		{"nested", "http://localhost:8081/storage/v1/object/public/archivos-ventas/a/b.txt", "a/b.txt"},
		{"signed url", "https://x.supabase.co/storage/v1/object/sign/archivos-ventas/c.png?token=abc", "c.png"},
		{"bare key", "archivo_base_3_1.pdf", "archivo_base_3_1.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ObjectKey("archivos-ventas", tt.ref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ObjectKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectKey_Invalid(t *testing.T) {
	for _, ref := range []string{"", "   ", "https://example.com/other-bucket/a.png", "../etc/passwd", "/abs.png"} {
		if _, err := ObjectKey("archivos-ventas", ref); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ObjectKey(%q) err = %v, want ErrInvalidKey", ref, err)
		}
	}
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	if got := ObjectName("archivo_vector", 42, "Diseño.SVG", now); got != "archivo_vector_42_1700000000123.svg" {
		t.Errorf("ObjectName = %q", got)
	}
	if got := ObjectName("foto_sello", 7, "noext", now); got != "foto_sello_7_1700000000123" {
		t.Errorf("ObjectName without extension = %q", got)
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	u := publicURL("https://x.supabase.co/", "archivos-ventas", "mi logo.png")
	if !strings.HasPrefix(u, "https://x.supabase.co/storage/v1/object/public/archivos-ventas/") {
		t.Fatalf("publicURL = %q", u)
	}
	key, err := ObjectKey("archivos-ventas", u)
	if err != nil || key != "mi logo.png" {
		t.Errorf("ObjectKey(publicURL) = %q, %v", key, err)
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("https://x/storage/v1/object/public/b/a.JPG") {
		t.Error("jpg url should be an image")
	}
	if IsImage("https://x/storage/v1/object/public/b/a.pdf?x=.png") {
		t.Error("pdf with query should not be an image")
	}
}

func TestAllowedUpload(t *testing.T) {
	tests := []struct {
		filename, contentType string
		want                  bool
	}{
		{"a.png", "image/png", true},
		{"scan", "image/heic", true},
		{"a.pdf", "application/pdf", true},
		{"a.docx", "application/octet-stream", true},
		{"notes.TXT", "", true},
		{"a.exe", "application/octet-stream", false},
		{"a.zip", "application/zip", false},
	}
	for _, tt := range tests {
		if got := AllowedUpload(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("AllowedUpload(%q, %q) = %v, want %v", tt.filename, tt.contentType, got, tt.want)
		}
	}
}
