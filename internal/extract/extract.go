// Package extract turns raw crawled text and URLs into structured paper
// records with heuristic credibility scores.
// Implements: prd001-discovery (R3.1-R3.6);
//
//	docs/ARCHITECTURE § Metadata Extraction.
//
// Every function here is pure: identical input always yields an
// identical record. The reference time is an explicit parameter so
// extraction stays deterministic under test and across merge passes.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pdiddy/paper-graph/pkg/types"
)

const (
	maxTitleLen   = 200
	abstractLimit = 500
	maxKeywords   = 8
	maxAuthors    = 5
	minYear       = 1990
)

// venueDomains maps source domains to display venues (R3.3).
var venueDomains = []struct {
	domain string
	venue  string
}{
	{"arxiv.org", "arXiv"},
	{"ieee.org", "IEEE"},
	{"acm.org", "ACM"},
	{"springer.com", "Springer"},
	{"elsevier.com", "Elsevier"},
	{"sciencedirect.com", "Elsevier"},
	{"wiley.com", "Wiley"},
	{"nature.com", "Nature"},
	{"science.org", "Science"},
	{"semanticscholar.org", "Semantic Scholar"},
	{"researchgate.net", "ResearchGate"},
	{"openreview.net", "OpenReview"},
	{"dblp.org", "DBLP"},
}

// venueTiers maps source domains to a credibility bonus. Unmatched
// domains get the baseline tier (no bonus).
var venueTiers = []struct {
	domains []string
	bonus   float64
}{
	{[]string{"ieee.org", "acm.org", "nature.com", "science.org"}, 2.0},
	{[]string{"arxiv.org", "openreview.net"}, 1.5},
	{[]string{"springer.com", "elsevier.com", "sciencedirect.com", "wiley.com"}, 1.0},
	{[]string{"semanticscholar.org", "dblp.org"}, 0.5},
}

// keywordVocabulary is the fixed vocabulary matched against page content.
var keywordVocabulary = []string{
	"machine learning", "deep learning", "neural networks", "artificial intelligence",
	"computer vision", "natural language processing", "nlp", "transformer",
	"attention", "cnn", "rnn", "lstm", "gpt", "bert", "gan", "reinforcement learning",
	"supervised learning", "unsupervised learning", "classification", "regression",
	"clustering", "optimization", "algorithm", "model", "training", "inference",
	"dataset", "benchmark", "evaluation", "performance", "accuracy", "prediction",
}

var (
	yearPattern  = regexp.MustCompile(`\b(19[0-9]{2}|20[0-9]{2})\b`)
	wordPattern  = regexp.MustCompile(`\b[a-z]{3,}\b`)
	// Name patterns stay on one line; \s would let a name swallow the
	// first word of the next sentence across a newline.
	authorByForm = regexp.MustCompile(`\b(?:[Bb]y|[Aa]uthors?:?)[ \t]+([A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?(?:[ \t]+[A-Z][a-z]+)+(?:[ \t]*(?:,|\band\b)[ \t]*[A-Z][a-z]+(?:[ \t]+[A-Z]\.?)?(?:[ \t]+[A-Z][a-z]+)+)*)`)
	authorList   = regexp.MustCompile(`\b([A-Z][a-z]+[ \t]+[A-Z][a-z]+)(?:[ \t]*,[ \t]*([A-Z][a-z]+[ \t]+[A-Z][a-z]+))+`)
	authorSplit  = regexp.MustCompile(`\s*(?:,|\band\b)\s*`)
)

// FromSearchResult builds a Paper from one search-service hit (R3.1).
// The second return is false when the hit has no usable title.
func FromSearchResult(r types.SearchResult, topic string, now time.Time) (*types.Paper, bool) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return FromPage(r.Content, r.URL, topic, now)
	}
	return build(title, r.Content, r.URL, topic, now), true
}

// FromPage builds a Paper from raw page text and its source URL (R3.2).
// Title resolution: first heading-like line, then the HTML <title> tag,
// then a slug derived from the URL path. The second return is false when
// none of those produce a title; the page is not a paper.
func FromPage(content, pageURL, topic string, now time.Time) (*types.Paper, bool) {
	title := firstHeading(content)
	if title == "" {
		title = htmlTitle(content)
	}
	if title == "" {
		title = titleFromURL(pageURL)
	}
	if title == "" {
		return nil, false
	}
	return build(title, content, pageURL, topic, now), true
}

// build assembles the record from the resolved title. Pure.
func build(title, content, pageURL, topic string, now time.Time) *types.Paper {
	title = truncate(title, maxTitleLen)
	year := extractYear(content, title, now)
	keywords := extractKeywords(content, title, topic)
	abstract := truncate(strings.TrimSpace(content), abstractLimit)
	credibility := credibilityScore(content, pageURL, title, year, len(keywords), len(abstract), now)

	return &types.Paper{
		URL:         pageURL,
		Title:       title,
		Authors:     extractAuthors(content),
		Venue:       venueFromURL(pageURL),
		Year:        year,
		Citations:   estimateCitations(credibility, year, now),
		Credibility: credibility,
		Abstract:    abstract,
		Keywords:    keywords,
	}
}

// extractYear returns the most recent 4-digit year in [minYear, now]
// found in content or title, defaulting to the current year (R3.4).
func extractYear(content, title string, now time.Time) int {
	best := 0
	for _, m := range yearPattern.FindAllString(content+" "+title, -1) {
		var y int
		fmt.Sscanf(m, "%d", &y)
		if y >= minYear && y <= now.Year() && y > best {
			best = y
		}
	}
	if best == 0 {
		return now.Year()
	}
	return best
}

// extractAuthors pattern-matches author names in the first 500 characters
// of content. No match yields an empty list, not an error (R3.5).
func extractAuthors(content string) []string {
	text := content
	if len(text) > 500 {
		text = text[:500]
	}

	if m := authorByForm.FindStringSubmatch(text); m != nil {
		return splitAuthors(m[1])
	}
	if m := authorList.FindString(text); m != "" {
		return splitAuthors(m)
	}
	return nil
}

func splitAuthors(s string) []string {
	parts := authorSplit.Split(s, -1)
	var authors []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > 3 && len(p) < 50 {
			authors = append(authors, p)
		}
		if len(authors) == maxAuthors {
			break
		}
	}
	return authors
}

// venueFromURL maps the source domain to a venue, "Unknown" otherwise.
func venueFromURL(pageURL string) string {
	for _, v := range venueDomains {
		if strings.Contains(pageURL, v.domain) {
			return v.venue
		}
	}
	return "Unknown"
}

// credibilityScore is the deterministic credibility heuristic (R3.6):
// venue tier, recency, and content richness, clamped to [1.0, 10.0].
func credibilityScore(content, pageURL, title string, year, keywordCount, abstractLen int, now time.Time) float64 {
	score := 5.0

	for _, tier := range venueTiers {
		matched := false
		for _, d := range tier.domains {
			if strings.Contains(pageURL, d) {
				score += tier.bonus
				matched = true
				break
			}
		}
		if matched {
			break
		}
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "citation") || strings.Contains(lower, "peer-reviewed") || strings.Contains(lower, "journal") {
		score += 0.5
	}
	if strings.Contains(lower, "conference") || strings.Contains(lower, "proceedings") || strings.Contains(lower, "workshop") {
		score += 0.3
	}

	if len(title) > 20 && len(title) < 200 {
		score += 0.2
	}

	// Mild recency weighting within the last 5 years.
	if now.Year()-year <= 5 {
		score += 0.3
	}

	// Content richness.
	if abstractLen >= 300 {
		score += 0.2
	}
	if keywordCount >= 4 {
		score += 0.2
	}

	return clamp(score, 1.0, 10.0)
}

// estimateCitations derives a citation-count estimate from credibility
// and age: older, higher-credibility papers score higher. Deterministic
// and never negative.
func estimateCitations(credibility float64, year int, now time.Time) int {
	age := now.Year() - year
	if age < 1 {
		age = 1
	}
	ageFactor := age * 50
	if ageFactor > 500 {
		ageFactor = 500
	}
	n := int(credibility*100) + ageFactor
	if n < 10 {
		n = 10
	}
	return n
}

// extractKeywords matches the fixed vocabulary plus topic words, capped
// at maxKeywords. Order is vocabulary order, then topic order, so the
// result is deterministic.
func extractKeywords(content, title, topic string) []string {
	text := strings.ToLower(content + " " + title + " " + topic)

	var keywords []string
	seen := make(map[string]bool)
	add := func(kw string) {
		if !seen[kw] && len(keywords) < maxKeywords {
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}

	for _, kw := range keywordVocabulary {
		if strings.Contains(text, kw) {
			add(kw)
		}
	}
	for _, w := range wordPattern.FindAllString(strings.ToLower(topic), -1) {
		add(w)
	}
	return keywords
}

// Relevance scores the topical match between a topic and a paper in
// [0.0, 1.0]. Each topic word found among the keywords contributes 0.25;
// each found only in the title or abstract contributes 0.15; capped at 1.0.
func Relevance(topic string, p *types.Paper) float64 {
	words := wordPattern.FindAllString(strings.ToLower(topic), -1)
	if len(words) == 0 {
		return 0.0
	}

	kwSet := make(map[string]bool)
	for _, kw := range p.Keywords {
		for _, w := range strings.Fields(kw) {
			kwSet[w] = true
		}
	}
	text := strings.ToLower(p.Title + " " + p.Abstract)

	score := 0.0
	seen := make(map[string]bool)
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		switch {
		case kwSet[w]:
			score += 0.25
		case strings.Contains(text, w):
			score += 0.15
		}
	}
	return clamp(score, 0.0, 1.0)
}

// firstHeading returns the first heading-like line in the content:
// a Markdown heading, or an early line that reads like a title.
func firstHeading(content string) string {
	lines := strings.Split(content, "\n")
	checked := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") || strings.HasPrefix(trimmed, "## ") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
		if checked == 0 && headingLike(trimmed) {
			return trimmed
		}
		checked++
		if checked >= 10 {
			break
		}
	}
	return ""
}

// headingLike reports whether a line reads like a paper title: short,
// multi-word, starts uppercase, and does not end a sentence.
func headingLike(line string) bool {
	if len(line) < 10 || len(line) > maxTitleLen {
		return false
	}
	if strings.HasSuffix(line, ".") {
		return false
	}
	if line[0] < 'A' || line[0] > 'Z' {
		return false
	}
	return len(strings.Fields(line)) >= 2
}

// htmlTitle extracts the <title> tag content when the page is HTML.
func htmlTitle(content string) string {
	if !strings.Contains(content, "<") {
		return ""
	}
	tok := html.NewTokenizer(strings.NewReader(content))
	inTitle := false
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tok.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tok.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}

// titleFromURL derives a display title from well-known academic URL
// shapes, or from the final path segment as a last resort.
func titleFromURL(pageURL string) string {
	if idx := strings.Index(pageURL, "/abs/"); idx >= 0 {
		id := strings.Trim(pageURL[idx+len("/abs/"):], "/")
		if id != "" {
			return "arXiv Paper " + id
		}
	}
	if idx := strings.Index(pageURL, "/paper/"); idx >= 0 {
		slug := strings.Trim(pageURL[idx+len("/paper/"):], "/")
		if slug != "" {
			return "Research Paper " + truncate(slug, 20)
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segs[len(segs)-1]
	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	last = strings.TrimSpace(last)
	if last == "" {
		return ""
	}
	return titleCase(last)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
