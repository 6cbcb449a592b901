// Package scraper contains the crawl pipeline: candidate records, dedup
// policy, and the orchestrator that drives download, NAS upload, catalog
// insert and state updates for each source site.
package scraper

import (
	"strings"
	"time"
)

// Candidate is a discovered-but-not-yet-downloaded document reference.
type Candidate struct {
	Source  string // origin site name, e.g. "naver_research"
	ID      string // source-native identifier, may be empty
	Title   string
	Company string
	Date    string // raw listing date, normalized by ParseDate
	PDFURL  string
	Referer string // origin page for the download request
	// Form, when set, makes the download a POST with these fields
	// instead of a plain GET. Board endpoints that only serve files to
	// form submissions need it.
	Form map[string]string
}

// DedupKey derives the stable identifier used to detect repeat
// processing: source id first, then the download URL, then title|date.
func DedupKey(c Candidate) string {
	if k := strings.TrimSpace(c.ID); k != "" {
		return k
	}
	if k := strings.TrimSpace(c.PDFURL); k != "" {
		return k
	}
	return strings.TrimSpace(c.Title) + "|" + strings.TrimSpace(c.Date)
}

// DedupeBatch removes duplicates within one batch, keeping the first
// occurrence per dedup key.
func DedupeBatch(batch []Candidate) []Candidate {
	seen := make(map[string]bool, len(batch))
	out := make([]Candidate, 0, len(batch))
	for _, c := range batch {
		k := DedupKey(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

var dateLayouts = []string{"06.01.02", "2006-01-02", "2006.01.02", "2006/01/02"}

// ParseDate normalizes a listing date to YYYY-MM-DD. Unparseable input
// yields an empty string.
func ParseDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

const maxFilenameLen = 160

// SanitizeFilename replaces path and control characters, collapses
// whitespace, caps the length and trims trailing separators.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
		"\n", "_", "\r", "_", "\t", "_",
	)
	name = replacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if runes := []rune(name); len(runes) > maxFilenameLen {
		name = string(runes[:maxFilenameLen])
	}
	return strings.TrimRight(name, "._ ")
}

// BuildFilename composes the local artifact name:
// "(YYYY-MM-DD) Title - Company.pdf". Date and company are omitted when
// absent.
func BuildFilename(title, date, company string) string {
	parts := make([]string, 0, 3)
	if d := ParseDate(date); d != "" {
		parts = append(parts, "("+d+")")
	} else if d := strings.TrimSpace(date); d != "" {
		parts = append(parts, "("+d+")")
	}
	parts = append(parts, strings.TrimSpace(title))
	if c := strings.TrimSpace(company); c != "" {
		parts = append(parts, "- "+c)
	}
	return SanitizeFilename(strings.Join(parts, " ")) + ".pdf"
}

// Metadata is the durable catalog entry for a completed artifact.
type Metadata struct {
	Source    string    `bson:"source" json:"source"`
	Title     string    `bson:"title" json:"title"`
	Date      string    `bson:"date,omitempty" json:"date,omitempty"`
	Company   string    `bson:"company,omitempty" json:"company,omitempty"`
	PDFURL    string    `bson:"pdf_url" json:"pdf_url"`
	LocalPath string    `bson:"downloaded_path" json:"downloaded_path"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
