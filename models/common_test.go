package models

import (
	"reflect"
	"testing"
)

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"same topics", "matching credit load"}

	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned StringList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !reflect.DeepEqual(scanned, list) {
		t.Fatalf("round trip = %v, want %v", scanned, list)
	}
}

func TestStringListNilStoresNull(t *testing.T) {
	var list StringList
	value, err := list.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if value != nil {
		t.Fatalf("nil list stored as %v, want SQL NULL", value)
	}

	var scanned StringList
	if err := scanned.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if scanned != nil {
		t.Fatalf("scanned NULL into %v, want nil", scanned)
	}
}

func TestStringListScanString(t *testing.T) {
	var list StringList
	if err := list.Scan(`["a","b"]`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(list) != 2 || list[0] != "a" {
		t.Fatalf("scanned %v", list)
	}

	if err := list.Scan(42); err == nil {
		t.Fatal("Scan accepted an int")
	}
}

func TestDisplayName(t *testing.T) {
	code := "CS101"
	name := "Introduction to Computer Science"

	cases := []struct {
		course ExtractedCourse
		want   string
	}{
		{ExtractedCourse{CourseCode: &code, CourseName: &name}, "CS101 Introduction to Computer Science"},
		{ExtractedCourse{CourseName: &name}, "Introduction to Computer Science"},
		{ExtractedCourse{CourseCode: &code}, "CS101"},
		{ExtractedCourse{}, "(unidentified course)"},
	}
	for _, c := range cases {
		if got := c.course.DisplayName(); got != c.want {
			t.Errorf("DisplayName() = %q, want %q", got, c.want)
		}
	}
}

func TestKnownDecision(t *testing.T) {
	for _, d := range []string{DecisionApproved, DecisionRejected, DecisionNeedsInfo} {
		if !KnownDecision(d) {
			t.Errorf("KnownDecision(%s) = false", d)
		}
	}
	// Pending is the initial state, never a choice an evaluator submits.
	for _, d := range []string{DecisionPending, "", "maybe", "APPROVED"} {
		if KnownDecision(d) {
			t.Errorf("KnownDecision(%q) = true", d)
		}
	}
}
