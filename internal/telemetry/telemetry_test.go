package telemetry

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIncrementErrorCounterAccumulates(t *testing.T) {
	db := testDB(t)

	for i := 0; i < 3; i++ {
		if err := db.IncrementErrorCounter("BadChecksum"); err != nil {
			t.Fatalf("IncrementErrorCounter: %v", err)
		}
	}
	if err := db.IncrementErrorCounter("NoGuidance"); err != nil {
		t.Fatalf("IncrementErrorCounter: %v", err)
	}

	counters, err := db.ErrorCounters()
	if err != nil {
		t.Fatalf("ErrorCounters: %v", err)
	}
	if counters["BadChecksum"] != 3 {
		t.Errorf("BadChecksum = %d, want 3", counters["BadChecksum"])
	}
	if counters["NoGuidance"] != 1 {
		t.Errorf("NoGuidance = %d, want 1", counters["NoGuidance"])
	}
}

func TestRecordAndListNotifications(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if err := db.RecordNotification(now.Add(time.Duration(i)*time.Second), "FixBelowMinimum", "fix quality below threshold"); err != nil {
			t.Fatalf("RecordNotification: %v", err)
		}
	}

	got, err := db.RecentNotifications(3)
	if err != nil {
		t.Fatalf("RecentNotifications: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d notifications, want 3", len(got))
	}
}

func TestRecordLatencySample(t *testing.T) {
	db := testDB(t)
	if err := db.RecordLatencySample(time.Now(), 5*time.Millisecond, 1*time.Millisecond, 2*time.Millisecond); err != nil {
		t.Fatalf("RecordLatencySample: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM latency_sample`).Scan(&count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
