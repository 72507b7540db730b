// Package batch validates subject-year combinations and drives the full
// pipeline across their cartesian product, one job at a time.
package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"beceharvest/core"
)

// BaseURL is the question archive root on the source site.
const BaseURL = "https://kuulchat.com/bece/questions/"

// MinYear is the earliest year the archive covers.
const MinYear = 2000

// Subjects is the known subject slug set, in display order.
var Subjects = []string{
	"science",
	"mathematics",
	"english",
	"social-studies",
}

// Job is one validated unit of work: a subject-year pair, its resolved
// source URL, and the directory its artifacts land in.
type Job struct {
	Subject   string
	Year      int
	SourceURL string
	OutputDir string
}

// GenerateURL resolves the page URL for a subject-year pair. Deterministic:
// the same pair always yields the same URL.
func GenerateURL(subject string, year int) string {
	return fmt.Sprintf("%s%s-%d/", BaseURL, subject, year)
}

// ValidateSubject rejects slugs outside the known subject set.
func ValidateSubject(subject string) error {
	for _, s := range Subjects {
		if s == subject {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown subject %q (available: %s)",
		core.ErrValidation, subject, strings.Join(sortedSubjects(), ", "))
}

// ValidateYear rejects years outside [MinYear, current year].
func ValidateYear(year int) error {
	current := time.Now().Year()
	if year < MinYear || year > current {
		return fmt.Errorf("%w: year %d outside valid range (%d-%d)",
			core.ErrValidation, year, MinYear, current)
	}
	return nil
}

// NewJob validates the pair and builds the job. No network work happens
// here; invalid combinations are rejected before any fetch.
func NewJob(subject string, year int, baseOutputDir string) (Job, error) {
	if err := ValidateSubject(subject); err != nil {
		return Job{}, err
	}
	if err := ValidateYear(year); err != nil {
		return Job{}, err
	}
	return Job{
		Subject:   subject,
		Year:      year,
		SourceURL: GenerateURL(subject, year),
		OutputDir: filepath.Join(baseOutputDir, fmt.Sprintf("%s_%d", subject, year)),
	}, nil
}

// ParseSubjects splits a comma-separated subject list, trimming whitespace.
func ParseSubjects(s string) []string {
	var subjects []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			subjects = append(subjects, part)
		}
	}
	return subjects
}

// ParseYears accepts a single year ("2022") or an inclusive range
// ("2019-2022").
func ParseYears(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if start, end, ok := strings.Cut(s, "-"); ok {
		from, err1 := strconv.Atoi(strings.TrimSpace(start))
		to, err2 := strconv.Atoi(strings.TrimSpace(end))
		if err1 != nil || err2 != nil || from > to {
			return nil, fmt.Errorf("%w: invalid year range %q (use YYYY-YYYY)", core.ErrValidation, s)
		}
		years := make([]int, 0, to-from+1)
		for y := from; y <= to; y++ {
			years = append(years, y)
		}
		return years, nil
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid year %q (use YYYY)", core.ErrValidation, s)
	}
	return []int{year}, nil
}

func sortedSubjects() []string {
	out := append([]string(nil), Subjects...)
	sort.Strings(out)
	return out
}
