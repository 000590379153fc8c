package milvus

import (
	"strings"
	"testing"
)

func TestPartitionName(t *testing.T) {
	got := partitionName("3f2a1c9e-8b47-4a61-9d2e-5f0c7b6a4e31")
	if got != "job_3f2a1c9e_8b47_4a61_9d2e_5f0c7b6a4e31" {
		t.Fatalf("got %q", got)
	}
	if strings.ContainsAny(got, "-") {
		t.Fatal("partition name contains invalid characters")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("x", 20)
	if got := truncate(long, 10); got != strings.Repeat("x", 10) {
		t.Fatalf("got %q", got)
	}
	// Multibyte text truncates on character boundaries.
	got := truncate(strings.Repeat("特", 20), 10)
	if got != strings.Repeat("特", 10) {
		t.Fatalf("got %q", got)
	}
}
