package store

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yangwenmai/kirbuk/internal/model"
)

func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db, NewSigner("http://localhost:8080", "secret"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "a/b.txt", []byte("hello"), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want %q", got, "hello")
	}

	_, ct, err := s.GetWithType(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("GetWithType: %v", err)
	}
	if ct != "text/plain" {
		t.Errorf("content type = %q, want text/plain", ct)
	}
}

func TestPut_Overwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, "k", []byte("silent"), "video/webm")
	if err := s.Put(ctx, "k", []byte("muxed"), "video/webm"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "muxed" {
		t.Errorf("Get after overwrite = %q, want %q", got, "muxed")
	}
}

func TestPut_EmptyKey(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(context.Background(), "", []byte("x"), "text/plain"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "k")
	if err != nil || ok {
		t.Fatalf("Exists before put = %v, %v; want false, nil", ok, err)
	}
	s.Put(ctx, "k", []byte{}, "application/octet-stream")
	ok, err = s.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists after put = %v, %v; want true, nil", ok, err)
	}
}

func TestMigrate_DropsUnusedIndex(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// A database left at v2 still carries the updated_at index.
	if _, err := db.Exec(`CREATE TABLE schema_version (version INTEGER NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (2)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE TABLE objects (key TEXT PRIMARY KEY, content_type TEXT NOT NULL, data BLOB NOT NULL, size INTEGER NOT NULL, updated_at TEXT NOT NULL)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`CREATE INDEX idx_objects_updated ON objects(updated_at)`); err != nil {
		t.Fatal(err)
	}

	if _, err := New(db, nil); err != nil {
		t.Fatalf("New: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'index' AND tbl_name = 'objects' AND name NOT LIKE 'sqlite_autoindex%'`).Scan(&n); err != nil {
		t.Fatalf("count indexes: %v", err)
	}
	if n != 0 {
		t.Errorf("objects has %d extra indexes, want none", n)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if _, err := New(db, nil); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(db, nil); err != nil {
		t.Fatalf("second New: %v", err)
	}

	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestPresignGet_WithoutSigner(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, _ := OpenSQLite(dbPath)
	defer db.Close()
	s, err := New(db, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.PresignGet(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected error without signer")
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("http://host:8080/", "secret")
	link := signer.Sign("staging_area/id 1/video.webm", time.Hour)

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if !strings.HasPrefix(u.Path, ArtifactRoute) {
		t.Fatalf("link path = %q, want %s prefix", u.Path, ArtifactRoute)
	}
	key := strings.TrimPrefix(u.Path, ArtifactRoute)
	if key != "staging_area/id 1/video.webm" {
		t.Errorf("decoded key = %q", key)
	}
	if err := signer.Verify(key, u.Query().Get("expires"), u.Query().Get("sig")); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if err := signer.Verify("other/key", u.Query().Get("expires"), u.Query().Get("sig")); !errors.Is(err, ErrLinkSignature) {
		t.Errorf("Verify other key = %v, want ErrLinkSignature", err)
	}
}

func TestSigner_Expired(t *testing.T) {
	signer := NewSigner("http://host", "secret")
	now := time.Unix(1_700_000_000, 0)
	signer.now = func() time.Time { return now }

	link := signer.Sign("k", time.Minute)
	u, _ := url.Parse(link)

	signer.now = func() time.Time { return now.Add(2 * time.Minute) }
	err := signer.Verify("k", u.Query().Get("expires"), u.Query().Get("sig"))
	if !errors.Is(err, ErrLinkExpired) {
		t.Errorf("Verify after expiry = %v, want ErrLinkExpired", err)
	}
}

func TestInspect_Empty(t *testing.T) {
	s := newTestStore(t)
	st, err := Inspect(context.Background(), s, model.NewLayout(""), "nothing", time.Hour)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if st.PayloadExists || st.ScriptExists || st.VideoExists || st.VoiceExists || st.PlaywrightExists || st.VoiceScriptExists {
		t.Errorf("expected no artifacts, got %+v", st)
	}
	if st.SubmissionID != "nothing" {
		t.Errorf("SubmissionID = %q", st.SubmissionID)
	}
}

func TestInspect_PartialSubset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	layout := model.NewLayout("")

	s.Put(ctx, layout.Key("id", model.ArtifactPayload), []byte(`{}`), "application/json")
	s.Put(ctx, layout.Key("id", model.ArtifactNarrative), []byte("step 1"), "text/plain")
	s.Put(ctx, layout.Key("id", model.ArtifactVideo), []byte("webm"), "video/webm")

	st, err := Inspect(ctx, s, layout, "id", time.Hour)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !st.PayloadExists || !st.ScriptExists || !st.VideoExists {
		t.Errorf("missing expected flags: %+v", st)
	}
	if st.VoiceExists || st.PlaywrightExists || st.VoiceScriptExists {
		t.Errorf("unexpected flags: %+v", st)
	}
	if st.ScriptContent != "step 1" {
		t.Errorf("ScriptContent = %q", st.ScriptContent)
	}
	if !strings.Contains(st.VideoURL, "sig=") {
		t.Errorf("VideoURL = %q, want signed link", st.VideoURL)
	}
}
