package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "METHOD", "PATH", "NAME")
	table.AddRow("GET", "/test_model/{pk}", "test_model_retrieve")
	table.AddRow("DELETE", "/test_model/{pk}")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "METHOD  PATH              NAME" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "──────") {
		t.Errorf("expected separator, got %q", lines[1])
	}
	if lines[2] != "GET     /test_model/{pk}  test_model_retrieve" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[3] != "DELETE  /test_model/{pk}" {
		t.Errorf("short rows should be padded and trimmed, got %q", lines[3])
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestTableWithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, true).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"TestModel", "TestModel", 0},
		{"TestModl", "TestModel", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	known := []string{"ParentTestModel", "TestModel", "ChildTestModel"}

	got := FindSimilar("testmodl", known)
	if len(got) != 1 || got[0] != "TestModel" {
		t.Errorf("expected [TestModel], got %v", got)
	}
	if got := FindSimilar("Invoice", known); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestResourceNotFoundError(t *testing.T) {
	msg := ResourceNotFoundError("TestModl", []string{"TestModel"}, true)

	for _, want := range []string{
		"RESOURCE NOT FOUND: Cannot find resource 'TestModl'.",
		"Did you mean: TestModel?",
		"autocrud routes",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "3 resources loaded", true)
	if buf.String() != "✓ 3 resources loaded\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
