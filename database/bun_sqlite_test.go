package database

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drummonds/resumereview/config"
	"github.com/google/go-cmp/cmp"
)

func newTestRepository(t *testing.T) *BunDB {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := NewRepository(config.ServerConfig{DatabaseType: "sqlite", DatabaseDbname: dbPath})
	if err != nil {
		t.Fatalf("Failed to set up sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBunSQLiteKeyValue(t *testing.T) {
	db := newTestRepository(t)

	t.Run("Missing key", func(t *testing.T) {
		value, ok, err := db.Get("resume:missing")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok || value != "" {
			t.Errorf("Expected no value, got %q (ok=%v)", value, ok)
		}
	})

	t.Run("Set, overwrite and get", func(t *testing.T) {
		if err := db.Set("greeting", "hello"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := db.Set("greeting", "hello again"); err != nil {
			t.Fatalf("Overwrite failed: %v", err)
		}
		value, ok, err := db.Get("greeting")
		if err != nil || !ok {
			t.Fatalf("Get failed: ok=%v err=%v", ok, err)
		}
		if value != "hello again" {
			t.Errorf("Expected overwritten value, got %q", value)
		}
	})

	t.Run("Keys by prefix", func(t *testing.T) {
		for _, key := range []string{"resume:b", "resume:a", "resumeX", "other:a", "resume_:c"} {
			if err := db.Set(key, "{}"); err != nil {
				t.Fatalf("Set %s failed: %v", key, err)
			}
		}
		keys, err := db.Keys("resume:")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if diff := cmp.Diff([]string{"resume:a", "resume:b"}, keys); diff != "" {
			t.Errorf("Keys mismatch (-want +got):\n%s", diff)
		}

		// _ is a literal, not a wildcard
		keys, err = db.Keys("resume_")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		if diff := cmp.Diff([]string{"resume_:c"}, keys); diff != "" {
			t.Errorf("Keys mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := db.Delete("greeting"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, ok, _ := db.Get("greeting"); ok {
			t.Error("Expected key to be gone")
		}
		if err := db.Delete("greeting"); err != nil {
			t.Errorf("Deleting a missing key should not fail: %v", err)
		}
	})
}

func TestResumeRecords(t *testing.T) {
	db := newTestRepository(t)

	older := &Resume{
		ID:          "01HZX3J4K5M6N7P8Q9R0S1T2V3",
		CompanyName: "Acme",
		JobTitle:    "Backend Engineer",
		ImagePath:   "/resume/01HZX3J4K5M6N7P8Q9R0S1T2V3/image",
		ResumePath:  "/resume/01HZX3J4K5M6N7P8Q9R0S1T2V3/pdf",
		UploadedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := &Resume{
		ID:         "01HZX3J4K5M6N7P8Q9R0S1T2V4",
		JobTitle:   "Platform Engineer",
		UploadedAt: time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
		Feedback: &Feedback{
			OverallScore: 82,
			ATS:          FeedbackSection{Score: 90, Tips: []Tip{{Type: "good", Tip: "Clear headings"}}},
		},
	}
	for _, resume := range []*Resume{older, newer} {
		if err := SaveResume(resume, db); err != nil {
			t.Fatalf("SaveResume failed: %v", err)
		}
	}

	got, status, err := FetchResume(older.ID, db)
	if err != nil || status != http.StatusOK {
		t.Fatalf("FetchResume failed: status=%d err=%v", status, err)
	}
	if diff := cmp.Diff(*older, got); diff != "" {
		t.Errorf("Resume mismatch (-want +got):\n%s", diff)
	}

	// Stored value is plain JSON readable through the key-value interface
	raw, ok, err := db.Get("resume:" + newer.ID)
	if err != nil || !ok {
		t.Fatalf("Expected raw record, ok=%v err=%v", ok, err)
	}
	if raw == "" || raw[0] != '{' {
		t.Errorf("Expected JSON object, got %q", raw)
	}

	all, err := FetchAllResumes(db)
	if err != nil {
		t.Fatalf("FetchAllResumes failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID || all[1].ID != older.ID {
		t.Errorf("Expected newest first, got %+v", all)
	}
	if all[0].Feedback == nil || all[0].Feedback.OverallScore != 82 {
		t.Errorf("Expected feedback to round trip, got %+v", all[0].Feedback)
	}

	if err := DeleteResume(older.ID, db); err != nil {
		t.Fatalf("DeleteResume failed: %v", err)
	}
	_, status, err = FetchResume(older.ID, db)
	if !errors.Is(err, ErrResumeNotFound) || status != http.StatusNotFound {
		t.Errorf("Expected not found after delete, got status=%d err=%v", status, err)
	}
	if err := DeleteResume(older.ID, db); !errors.Is(err, ErrResumeNotFound) {
		t.Errorf("Expected ErrResumeNotFound deleting twice, got %v", err)
	}
}

func TestSaveResumeRequiresID(t *testing.T) {
	db := newTestRepository(t)
	if err := SaveResume(&Resume{}, db); err == nil {
		t.Error("Expected an error saving a resume without an id")
	}
}

func TestUnknownDatabaseType(t *testing.T) {
	if _, err := NewRepository(config.ServerConfig{DatabaseType: "oracle"}); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}
