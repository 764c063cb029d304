package domain

import (
	"testing"
	"time"
)

func TestTodoPatchIsEmpty(t *testing.T) {
	if !(TodoPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	done := false
	if (TodoPatch{IsFinished: &done}).IsEmpty() {
		t.Fatal("patch with isFinished=false should not be empty")
	}
}

func TestTodoPatchApplyKeepsOmittedFields(t *testing.T) {
	due := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Todo{
		ID:           "1",
		Title:        "Buy milk",
		Description:  "2 litres",
		Category:     "Errands",
		DueDateUTC:   &due,
		CreatedAtUTC: created,
		UpdatedAtUTC: created,
	}

	work := "Work"
	got := TodoPatch{Category: &work}.Apply(orig)

	if got.Category != "Work" {
		t.Fatalf("expected category Work, got %q", got.Category)
	}
	if got.Title != orig.Title || got.Description != orig.Description || got.IsFinished != orig.IsFinished {
		t.Fatalf("unexpected change in untouched fields: %#v", got)
	}
	if got.DueDateUTC == nil || !got.DueDateUTC.Equal(due) {
		t.Fatalf("due date changed: %v", got.DueDateUTC)
	}
	if !got.UpdatedAtUTC.Equal(created) {
		t.Fatal("apply must not touch timestamps")
	}
}

func TestTodoPatchApplyNormalizesDueDateToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	due := time.Date(2024, 3, 16, 1, 0, 0, 0, loc)
	got := TodoPatch{DueDateUTC: &due}.Apply(Todo{})
	if got.DueDateUTC.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.DueDateUTC.Location())
	}
	if got.DueDateUTC.Day() != 15 {
		t.Fatalf("expected day 15 in UTC, got %d", got.DueDateUTC.Day())
	}
}

func TestTodoPatchApplyTruncatesDueDateToMillis(t *testing.T) {
	due := time.Date(2024, 3, 15, 10, 0, 0, 123456789, time.UTC)
	got := TodoPatch{DueDateUTC: &due}.Apply(Todo{})
	if got.DueDateUTC.Nanosecond() != 123000000 {
		t.Fatalf("expected .123 seconds, got %d ns", got.DueDateUTC.Nanosecond())
	}
}
