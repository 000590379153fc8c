package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/patentlens/patentlens/internal/domain/job"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	want := []string{"status", "report", "analyze", "trigger", "delete"}
	for _, name := range want {
		found := false
		for _, c := range root.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSubcommandsRequireJobID(t *testing.T) {
	for _, name := range []string{"status", "report", "analyze", "trigger", "delete"} {
		root := NewRootCommand()
		root.SetArgs([]string{name})
		root.SetOut(new(bytes.Buffer))
		root.SetErr(new(bytes.Buffer))
		if err := root.Execute(); err == nil {
			t.Errorf("%s without a job id should fail", name)
		}
	}
}

func failedJob(t *testing.T) *job.Job {
	t.Helper()
	j, err := job.New("user-1", "Widget", "jobs/x/spec.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.MarkPaid(); err != nil {
		t.Fatal(err)
	}
	if err := j.MarkFailed("model backend unreachable"); err != nil {
		t.Fatal(err)
	}
	return j
}

func TestPrintStatusShowsFailureReason(t *testing.T) {
	var buf bytes.Buffer
	if err := printStatus(&buf, failedJob(t), false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Status:     failed") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "model backend unreachable") {
		t.Errorf("missing failure reason:\n%s", out)
	}
}

func TestPrintReportRefusesIncompleteJob(t *testing.T) {
	j, _ := job.New("user-1", "Widget", "jobs/x/spec.txt", nil)
	_ = j.MarkPaid()

	err := printReport(new(bytes.Buffer), j, false)
	if !apperrors.IsCode(err, apperrors.ErrCodeConflict) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrintReportFailedJobSurfacesReason(t *testing.T) {
	err := printReport(new(bytes.Buffer), failedJob(t), false)
	if !apperrors.IsCode(err, apperrors.ErrCodeJobFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrintReportRendersAnalyses(t *testing.T) {
	j, _ := job.New("user-1", "Widget", "jobs/x/spec.txt", nil)
	_ = j.MarkPaid()
	_ = j.MarkCompleted()
	j.Analyses = []job.FeatureAnalysis{
		{Feature: "a flange", Analysis: "Disclosed by D1.", Source: "Doc A, Doc B", Position: 0},
		{Feature: "a widget", Analysis: "Not disclosed.", Position: 1},
	}

	var buf bytes.Buffer
	if err := printReport(&buf, j, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1. a flange") || !strings.Contains(out, "2. a widget") {
		t.Errorf("features not numbered:\n%s", out)
	}
	if !strings.Contains(out, "Sources: Doc A, Doc B") {
		t.Errorf("sources missing:\n%s", out)
	}
}
