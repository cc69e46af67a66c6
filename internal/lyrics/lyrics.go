// Package lyrics parses lyric payloads into time-ordered lines and
// resolves the active line for a playback position.
package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TypeLRC marks timestamp-tagged lyrics; any other type string is
// treated as plain text.
const TypeLRC = "lrc"

// Line is one lyric line. For LRC lyrics Time is seconds into the
// track; for plain lyrics it is the zero-based line ordinal and carries
// no timing meaning.
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// lrcLine matches "[mm:ss.xx]text" with a 2- or 3-digit fraction.
var lrcLine = regexp.MustCompile(`\[(\d{2}):(\d{2})\.(\d{2,3})\](.*)`)

// Parse splits raw lyrics text into lines. When format is TypeLRC,
// timestamped lines are extracted and sorted by time ascending; lines
// that do not match the pattern, or whose text is empty after trimming,
// are skipped. Any other format yields one entry per non-empty line.
func Parse(text, format string) []Line {
	if format == TypeLRC {
		return parseLRC(text)
	}
	return parsePlain(text)
}

func parseLRC(text string) []Line {
	lines := []Line{}
	for _, raw := range strings.Split(text, "\n") {
		m := lrcLine.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		body := strings.TrimSpace(m[4])
		if body == "" {
			continue
		}

		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		// A 2-digit fraction is centiseconds; pad right to milliseconds.
		frac := m[3]
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ := strconv.Atoi(frac)

		lines = append(lines, Line{
			Time: float64(minutes)*60 + float64(seconds) + float64(ms)/1000,
			Text: body,
		})
	}

	// Tag order in the source is not trusted.
	sort.Slice(lines, func(i, j int) bool { return lines[i].Time < lines[j].Time })
	return lines
}

func parsePlain(text string) []Line {
	lines := []Line{}
	for i, raw := range strings.Split(text, "\n") {
		body := strings.TrimSpace(raw)
		if body == "" {
			continue
		}
		lines = append(lines, Line{Time: float64(i), Text: body})
	}
	return lines
}

// ActiveLine returns the index of the last line whose time is at or
// before currentTime, or -1 when no line has started yet. Lines must be
// sorted by time ascending.
func ActiveLine(lines []Line, currentTime float64) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Time <= currentTime {
			return i
		}
	}
	return -1
}
