package markdown

import (
	"reflect"
	"testing"
)

func TestParseClassifiesLines(t *testing.T) {
	lines := Parse("Here are some picks:\n\n- **Trattoria Nove** - $35\n* Casual option\nEnjoy!")

	kinds := make([]LineKind, len(lines))
	for i, l := range lines {
		kinds[i] = l.Kind
	}
	want := []LineKind{Text, Blank, Bullet, Bullet, Text}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("Expected kinds %v, got %v", want, kinds)
	}
}

func TestBulletMarkerStripped(t *testing.T) {
	lines := Parse("- first pick")
	if len(lines) != 1 || lines[0].Kind != Bullet {
		t.Fatalf("Expected one bullet line, got %+v", lines)
	}
	if got := lines[0].Segments[0].Text; got != "first pick" {
		t.Errorf("Expected marker stripped, got %q", got)
	}
}

func TestSegmentsBoldSpans(t *testing.T) {
	got := Segments("Try **Trattoria Nove** for dinner")
	want := []Segment{
		{Text: "Try "},
		{Text: "Trattoria Nove", Bold: true},
		{Text: " for dinner"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSegmentsMultipleBoldSpans(t *testing.T) {
	got := Segments("**A** and **B**")
	want := []Segment{
		{Text: "A", Bold: true},
		{Text: " and "},
		{Text: "B", Bold: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestSegmentsUnclosedMarkerIsLiteral(t *testing.T) {
	got := Segments("price is **unbeatable")
	want := []Segment{{Text: "price is **unbeatable"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestParseEmptyInput(t *testing.T) {
	lines := Parse("")
	if len(lines) != 1 || lines[0].Kind != Blank {
		t.Errorf("Expected a single blank line, got %+v", lines)
	}
}
