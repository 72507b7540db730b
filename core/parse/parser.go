// Package parse implements the Parser interface for the kuulchat page layout.
// A subject-year page carries two sections, each announced by an h4.center
// marker ("OBJECTIVE TEST", "THEORY QUESTIONS") whose next sibling div holds
// one div per question. Question text, options, and solutions are recovered
// from the flattened text with fixed patterns; advertisement blocks
// interleaved with the questions are filtered out.
package parse

import (
	"fmt"
	stdhtml "html"
	"regexp"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"beceharvest/core"
)

const (
	objectiveMarker = "OBJECTIVE TEST"
	theoryMarker    = "THEORY QUESTIONS"
)

// adKeywords mark advertisement blocks interleaved with question divs.
var adKeywords = []string{
	"sponsored",
	"advertise",
	"kuulchat media",
	"kuulpay.com",
	"get a professional",
	"affordable website",
	"management system",
}

// adImagePatterns mark image URLs that belong to ads rather than diagrams.
// Genuine question diagrams live under /qns/.
var adImagePatterns = []string{"banner", "ad", "sponsor", "promo"}

// PageParser extracts question sections from a fetched page.
type PageParser struct{}

// New creates a PageParser.
func New() *PageParser {
	return &PageParser{}
}

// Parse extracts both sections from raw HTML. A page missing both section
// markers fails with ErrParse (layout change, or the subject-year does not
// exist); missing solutions or answers within a question never do.
func (p *PageParser) Parse(rawHTML string) (*core.ParsedPaper, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing HTML: %v", core.ErrParse, err)
	}

	objectives := p.parseSection(doc, objectiveMarker, core.SectionObjectives)
	theory := p.parseSection(doc, theoryMarker, core.SectionTheory)

	if objectives == nil && theory == nil {
		return nil, fmt.Errorf("%w: no section markers found (expected %q or %q)",
			core.ErrParse, objectiveMarker, theoryMarker)
	}

	return &core.ParsedPaper{
		Objectives: dedupeByNumber(objectives),
		Theory:     dedupeByNumber(theory),
	}, nil
}

// parseSection returns the questions under one section marker, or nil when
// the marker is absent.
func (p *PageParser) parseSection(doc *goquery.Document, marker string, section core.Section) []core.QuestionRecord {
	header := doc.Find("h4.center").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToUpper(s.Text()), marker)
	}).First()
	if header.Length() == 0 {
		return nil
	}

	container := header.NextAllFiltered("div").First()
	if container.Length() == 0 {
		return nil
	}

	var records []core.QuestionRecord
	container.ChildrenFiltered("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := flattenText(div)

		// The objective container sometimes runs into the theory heading.
		if section == core.SectionObjectives && strings.Contains(strings.ToUpper(text), theoryMarker) {
			return false
		}
		if isAdvertisement(text) {
			return true
		}

		if rec, ok := p.parseQuestion(div, text, section); ok {
			records = append(records, rec)
		}
		return true
	})

	sort.Slice(records, func(i, j int) bool { return records[i].Number < records[j].Number })
	return records
}

var (
	numberRe       = regexp.MustCompile(`(\d+)\.`)
	objSolutionRe  = regexp.MustCompile(`\s(?:Mark|Solution)\s`)
	theorySplitRe  = regexp.MustCompile(`\sShow Solution\s`)
	optionMarkerRe = regexp.MustCompile(`(?:^|\s)([A-D])\.\s+`)
	answerLetterRe = regexp.MustCompile(`^(?:Answer[:\s]+)?([A-D])[.)\s]`)
)

func (p *PageParser) parseQuestion(div *goquery.Selection, text string, section core.Section) (core.QuestionRecord, bool) {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return core.QuestionRecord{}, false
	}
	number := atoi(m[1])
	if number <= 0 {
		return core.QuestionRecord{}, false
	}

	splitRe := objSolutionRe
	if section == core.SectionTheory {
		splitRe = theorySplitRe
	}
	questionPart, solutionPart := splitOnce(text, splitRe)

	rec := core.QuestionRecord{
		Section:   section,
		Number:    number,
		ImageRefs: extractImageRefs(div),
	}

	// Drop everything up to and including the "N." marker.
	body := questionPart
	if idx := strings.Index(questionPart, m[0]); idx >= 0 {
		body = questionPart[idx+len(m[0]):]
	}
	body = strings.TrimSpace(body)

	switch section {
	case core.SectionObjectives:
		rec.Text, rec.Options = splitStemAndOptions(body)
		// A stem with no options is an ad remnant or a fragment.
		if rec.Text == "" || len(rec.Options) == 0 {
			return core.QuestionRecord{}, false
		}
	default:
		rec.Text = body
		if rec.Text == "" {
			return core.QuestionRecord{}, false
		}
	}

	rec.Explanation = extractSolution(div, solutionPart)
	if rec.Explanation != "" && section == core.SectionObjectives {
		if am := answerLetterRe.FindStringSubmatch(rec.Explanation); am != nil {
			rec.CorrectAnswer = am[1]
		}
	}

	return rec, true
}

// splitStemAndOptions separates the question stem from the A–D options.
// Options keep their letter prefix so the CSV cell stays self-describing.
func splitStemAndOptions(body string) (string, []string) {
	locs := optionMarkerRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		return strings.TrimSpace(body), nil
	}

	stem := strings.TrimSpace(body[:locs[0][0]])

	byLetter := make(map[string]string, len(locs))
	for i, loc := range locs {
		letter := body[loc[2]:loc[3]]
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		val := strings.TrimSpace(body[loc[1]:end])
		val = strings.TrimSuffix(val, ".")
		if val != "" {
			byLetter[letter] = val
		}
	}

	var options []string
	for _, letter := range []string{"A", "B", "C", "D"} {
		if val, ok := byLetter[letter]; ok {
			options = append(options, letter+". "+val)
		}
	}
	return stem, options
}

// extractSolution prefers the dedicated solution block when the page has
// one, converting it to Markdown so tables and lists survive flattening.
// Pages without the block fall back to the text already split off the
// question body.
func extractSolution(div *goquery.Selection, textFallback string) string {
	sol := div.Find("div.solution").First()
	if sol.Length() > 0 {
		if inner, err := goquery.OuterHtml(sol); err == nil {
			if md, err := htmltomarkdown.ConvertString(inner); err == nil {
				return strings.TrimSpace(md)
			}
		}
	}
	return strings.TrimSpace(textFallback)
}

// extractImageRefs collects diagram URLs, skipping ad creatives.
func extractImageRefs(div *goquery.Selection) []string {
	var refs []string
	div.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		if isAdImage(src) {
			return
		}
		refs = append(refs, src)
	})
	return refs
}

func isAdvertisement(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range adKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isAdImage(src string) bool {
	if strings.Contains(src, "/qns/") {
		return false
	}
	lower := strings.ToLower(src)
	for _, pat := range adImagePatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// flattenText walks the element's text nodes and joins them with single
// spaces. goquery's Text() concatenates adjacent nodes without separators,
// which would glue options together ("woodB. metal").
func flattenText(sel *goquery.Selection) string {
	var parts []string
	for _, node := range sel.Nodes {
		collectText(node, &parts)
	}
	return cleanText(strings.Join(parts, " "))
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// cleanText decodes HTML entities and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(stdhtml.UnescapeString(s), " "))
}

// splitOnce splits text at the first match of re, returning both halves.
func splitOnce(text string, re *regexp.Regexp) (string, string) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[:loc[0]], text[loc[1]:]
}

func atoi(s string) int {
	n := 0
	for _, ch := range s {
		n = n*10 + int(ch-'0')
	}
	return n
}

// dedupeByNumber drops later duplicates of the same question number; the
// theory section occasionally repeats a question block.
func dedupeByNumber(records []core.QuestionRecord) []core.QuestionRecord {
	if len(records) == 0 {
		return records
	}
	seen := make(map[int]bool, len(records))
	out := records[:0]
	for _, rec := range records {
		if seen[rec.Number] {
			continue
		}
		seen[rec.Number] = true
		out = append(out, rec)
	}
	return out
}
