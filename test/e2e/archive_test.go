package e2e

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/datacenter/wiper/internal/archive"
	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/provision"
)

// TestArchiveRoundTrip exercises the transcript archive against a real
// S3-compatible endpoint, normally a lab MinIO. The run-unique bucket
// is left behind; transcripts are meant to survive the test host.
func TestArchiveRoundTrip(t *testing.T) {
	endpoint := os.Getenv("WIPER_E2E_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("WIPER_E2E_S3_ENDPOINT not set")
	}

	runID := rand.New(rand.NewSource(time.Now().UnixNano())).Intn(10000)
	cfg := &config.ArchiveConfig{
		Endpoint:  endpoint,
		Region:    "us-east-1",
		Bucket:    fmt.Sprintf("wiper-e2e-%d", runID),
		AccessKey: os.Getenv("WIPER_E2E_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("WIPER_E2E_S3_SECRET_KEY"),
	}

	store, err := archive.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	// 1. First pass: create the bucket
	t.Logf("Creating bucket %s...", cfg.Bucket)
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("First pass EnsureBucket failed: %v", err)
	}

	ok, err := store.Ping(ctx)
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if !ok {
		t.Error("Bucket not found after creation")
	}

	// 2. Second pass: idempotency
	t.Log("Running second pass (idempotency)...")
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("Second pass EnsureBucket failed: %v", err)
	}

	// 3. Upload a transcript and read it back
	target := fmt.Sprintf("apic-e2e-%d.lab", runID)
	outcome := &provision.Outcome{
		Target:     target,
		Stage:      provision.StageComplete,
		Answered:   []string{"fabric_name"},
		StartedAt:  time.Now(),
		Duration:   15 * time.Minute,
		Transcript: "Cluster configuration ...\nPress any key to continue...",
	}

	t.Log("Uploading transcript...")
	key, err := store.Upload(ctx, outcome)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if key == "" {
		t.Fatal("Expected a non-empty object key")
	}

	body, err := store.Fetch(ctx, key)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != outcome.Transcript {
		t.Errorf("Fetched transcript differs: got %q", body)
	}

	keys, err := store.List(ctx, target)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Errorf("Expected [%s] from List, got %v", key, keys)
	}

	// 4. Empty transcripts are skipped, not uploaded
	emptyKey, err := store.Upload(ctx, &provision.Outcome{Target: target, Stage: provision.StageConnecting})
	if err != nil {
		t.Fatalf("Upload of empty transcript failed: %v", err)
	}
	if emptyKey != "" {
		t.Errorf("Expected empty key for empty transcript, got %q", emptyKey)
	}
}
