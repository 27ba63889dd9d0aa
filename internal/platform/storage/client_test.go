package storage

import (
	"testing"

	"github.com/varmina-joyas/store/internal/platform/config"
)

func TestNewClientRequiresBucket(t *testing.T) {
	if _, err := NewClient(config.StorageConfig{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}

func TestObjectName(t *testing.T) {
	client, err := NewClient(config.StorageConfig{ImagesBucket: "product-images"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	cases := []struct {
		rawURL string
		want   string
		ok     bool
	}{
		{"https://storage.googleapis.com/product-images/ring.webp", "ring.webp", true},
		{"https://storage.googleapis.com/product-images/nested/ring.webp?alt=media", "nested/ring.webp", true},
		{"https://storage.googleapis.com/other-bucket/ring.webp", "", false},
		{"https://cdn.example.com/ring.webp", "", false},
		{"https://storage.googleapis.com/product-images/", "", false},
	}
	for _, tc := range cases {
		got, ok := client.ObjectName(tc.rawURL)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ObjectName(%q) = (%q, %v), want (%q, %v)", tc.rawURL, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPublicURLRoundTrip(t *testing.T) {
	client, err := NewClient(config.StorageConfig{ImagesBucket: "product-images"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	url := client.PublicURL("pieces/ring.webp")
	name, ok := client.ObjectName(url)
	if !ok || name != "pieces/ring.webp" {
		t.Fatalf("round trip produced (%q, %v)", name, ok)
	}
}
