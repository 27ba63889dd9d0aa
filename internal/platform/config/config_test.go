package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"STORE_FIREBASE_PROJECT_ID": "varmina-test",
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(baseEnv()),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Fatalf("expected local environment, got %q", cfg.Environment)
	}
	if cfg.Firestore.ProjectID != "varmina-test" {
		t.Fatalf("expected firestore project to default to firebase project, got %q", cfg.Firestore.ProjectID)
	}
	if cfg.Storage.ImagesBucket != "product-images" {
		t.Fatalf("expected default images bucket, got %q", cfg.Storage.ImagesBucket)
	}
	if cfg.Store.FetchTimeout != 10*time.Second {
		t.Fatalf("expected default fetch timeout, got %v", cfg.Store.FetchTimeout)
	}
	if cfg.Store.ToastTTL != 3*time.Second {
		t.Fatalf("expected default toast ttl, got %v", cfg.Store.ToastTTL)
	}
	if cfg.Store.USDExchangeRate != 950 {
		t.Fatalf("expected default exchange rate, got %d", cfg.Store.USDExchangeRate)
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "STORE_FIREBASE_PROJECT_ID=varmina-dotenv\n" +
		"STORE_STORAGE_IMAGES_BUCKET=custom-bucket\n" +
		"STORE_REFRESH_DEBOUNCE=45s\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(envFile),
		WithoutSystemEnv(),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Firebase.ProjectID != "varmina-dotenv" {
		t.Fatalf("expected dotenv project id, got %q", cfg.Firebase.ProjectID)
	}
	if cfg.Storage.ImagesBucket != "custom-bucket" {
		t.Fatalf("expected dotenv bucket, got %q", cfg.Storage.ImagesBucket)
	}
	if cfg.Store.RefreshDebounce != 45*time.Second {
		t.Fatalf("expected dotenv debounce, got %v", cfg.Store.RefreshDebounce)
	}
}

func TestLoadEnvMapOverridesDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("STORE_FIREBASE_PROJECT_ID=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	cfg, err := Load(context.Background(),
		WithEnvFile(envFile),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{"STORE_FIREBASE_PROJECT_ID": "from-map"}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-map" {
		t.Fatalf("expected env map to win, got %q", cfg.Firebase.ProjectID)
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := baseEnv()
	env["STORE_FIREBASE_WEB_API_KEY"] = "secret://firebase_web_api_key"

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref != "secret://firebase_web_api_key" {
			t.Fatalf("unexpected secret ref %q", ref)
		}
		return "resolved-key", nil
	})

	cfg, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(env),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.WebAPIKey != "resolved-key" {
		t.Fatalf("expected resolved secret, got %q", cfg.Firebase.WebAPIKey)
	}
}

func TestLoadWrapsSecretResolutionFailures(t *testing.T) {
	env := baseEnv()
	env["STORE_FIREBASE_WEB_API_KEY"] = "sm://firebase_web_api_key"

	wantErr := errors.New("denied")
	resolver := SecretResolverFunc(func(context.Context, string) (string, error) {
		return "", wantErr
	})

	_, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(env),
		WithSecretResolver(resolver),
	)
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://firebase_web_api_key" {
		t.Fatalf("expected sm:// ref normalised, got %q", secretErr.Ref)
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped resolver error, got %v", err)
	}
}

func TestLoadReportsMissingFields(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvFile(""),
		WithoutSystemEnv(),
		WithEnvMap(map[string]string{
			"STORE_STORAGE_IMAGES_BUCKET": "product-images",
		}),
	)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	fields := validationErr.Fields()
	want := map[string]bool{"Firebase.ProjectID": false, "Firestore.ProjectID": false}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("expected %s in validation fields %v", field, fields)
		}
	}
}
