package gcs

import "testing"

func TestPublicURL(t *testing.T) {
	t.Parallel()

	got := PublicURL("", "concierge-images", "edited_image_20250101_abc123.png")
	want := "https://storage.googleapis.com/concierge-images/edited_image_20250101_abc123.png"
	if got != want {
		t.Fatalf("PublicURL() = %q, want %q", got, want)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (&Config{}).Validate(); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
