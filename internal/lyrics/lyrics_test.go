package lyrics

import (
	"math"
	"testing"
)

func TestParseLRC(t *testing.T) {
	t.Run("BasicTimestamp", func(t *testing.T) {
		lines := Parse("[01:02.50]Hello", TypeLRC)
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(lines))
		}
		if lines[0].Time != 62.5 {
			t.Errorf("expected time 62.5, got %v", lines[0].Time)
		}
		if lines[0].Text != "Hello" {
			t.Errorf("expected text %q, got %q", "Hello", lines[0].Text)
		}
	})

	t.Run("TwoDigitFractionPadded", func(t *testing.T) {
		short := Parse("[00:10.5]A", TypeLRC)
		long := Parse("[00:10.50]A", TypeLRC)
		if len(short) != 1 || len(long) != 1 {
			t.Fatalf("expected 1 line each, got %d and %d", len(short), len(long))
		}
		if short[0].Time != long[0].Time {
			t.Errorf("2-digit fraction should parse like padded form: %v vs %v",
				short[0].Time, long[0].Time)
		}
		if short[0].Time != 10.5 {
			t.Errorf("expected time 10.5, got %v", short[0].Time)
		}
	})

	t.Run("ThreeDigitFraction", func(t *testing.T) {
		lines := Parse("[00:01.123]x", TypeLRC)
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(lines))
		}
		if math.Abs(lines[0].Time-1.123) > 1e-9 {
			t.Errorf("expected time 1.123, got %v", lines[0].Time)
		}
	})

	t.Run("SortsOutOfOrderInput", func(t *testing.T) {
		text := "[00:30.00]third\n[00:10.00]first\n[00:20.00]second"
		lines := Parse(text, TypeLRC)
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d", len(lines))
		}
		want := []string{"first", "second", "third"}
		for i, w := range want {
			if lines[i].Text != w {
				t.Errorf("line %d: expected %q, got %q", i, w, lines[i].Text)
			}
		}
	})

	t.Run("SkipsNonMatchingAndEmptyLines", func(t *testing.T) {
		text := "[ar:Somebody]\n[00:05.00]   \nnot a tag line\n[00:06.00]kept"
		lines := Parse(text, TypeLRC)
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(lines))
		}
		if lines[0].Text != "kept" {
			t.Errorf("expected %q, got %q", "kept", lines[0].Text)
		}
	})
}

func TestParsePlain(t *testing.T) {
	text := "first\n\n  second  \n"
	lines := Parse(text, "plain")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "first" || lines[0].Time != 0 {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	// Plain timing is the original line ordinal, blanks included.
	if lines[1].Text != "second" || lines[1].Time != 2 {
		t.Errorf("unexpected second line: %+v", lines[1])
	}
}

func TestActiveLine(t *testing.T) {
	lines := []Line{
		{Time: 10, Text: "a"},
		{Time: 20, Text: "b"},
		{Time: 30, Text: "c"},
	}

	tests := []struct {
		name string
		time float64
		want int
	}{
		{"before first line", 5, -1},
		{"exactly at first line", 10, 0},
		{"between lines", 25, 1},
		{"past last line", 100, 2},
	}
	for _, tc := range tests {
		if got := ActiveLine(lines, tc.time); got != tc.want {
			t.Errorf("%s: ActiveLine(%v) = %d, want %d", tc.name, tc.time, got, tc.want)
		}
	}

	t.Run("MonotonicWithIncreasingTime", func(t *testing.T) {
		prev := -1
		for ts := 0.0; ts <= 40; ts += 0.5 {
			idx := ActiveLine(lines, ts)
			if idx < prev {
				t.Fatalf("active index decreased from %d to %d at t=%v", prev, idx, ts)
			}
			prev = idx
		}
	})

	t.Run("EmptyLines", func(t *testing.T) {
		if got := ActiveLine(nil, 10); got != -1 {
			t.Errorf("expected -1 for empty lines, got %d", got)
		}
	})
}
