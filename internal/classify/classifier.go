// Package classify turns raw upload filenames into canonical, brand-suffixed
// display names and assigns each one a category.
//
// Rules are evaluated in a fixed order and the first match wins:
//
//  1. season/episode marker (S01E02)        -> tvseries
//  2. year in parentheses or brackets       -> movies
//  3. source chat label contains "GAMES"    -> games
//  4. keyword fallback (games, music, tv)
//  5. default                               -> movies
//
// Classification never fails.
package classify

import (
	"regexp"
	"strings"

	"github.com/dyluth/vinehill/internal/catalog"
)

var (
	episodeMarker = regexp.MustCompile(`(?i)s\d{2}e\d{2}`)
	qualityToken  = regexp.MustCompile(`(?i)\b(\d{3,4}p)\b`)
	yearToken     = regexp.MustCompile(`[(\[](\d{4})[)\]]`)
	shortTVMarker = regexp.MustCompile(`(?i)\b(s\d{1,2}|ep\d{1,3})\b`)
	titleSep      = regexp.MustCompile(`[.\s]+`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Keywords are lower-case substrings used by the fallback rule.
type Keywords struct {
	Games    []string
	Music    []string
	TVSeries []string
}

// DefaultKeywords returns the built-in fallback keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Games:    []string{"ps", "xbox", "pc", "game", "apk"},
		Music:    []string{"music", "mp3", "flac", "album"},
		TVSeries: []string{"season", "episode"},
	}
}

// Result is the outcome of classifying one filename.
type Result struct {
	Name     string
	Category catalog.Category
}

// Classifier is stateless after construction and safe for concurrent use.
type Classifier struct {
	brand       string
	gamesMarker *regexp.Regexp
	keywords    Keywords
}

// New creates a classifier that appends brand to every canonical name.
// Empty keyword sets fall back to DefaultKeywords.
func New(brand string, kw Keywords) *Classifier {
	def := DefaultKeywords()
	if len(kw.Games) == 0 {
		kw.Games = def.Games
	}
	if len(kw.Music) == 0 {
		kw.Music = def.Music
	}
	if len(kw.TVSeries) == 0 {
		kw.TVSeries = def.TVSeries
	}
	kw.Games = lowerAll(kw.Games)
	kw.Music = lowerAll(kw.Music)
	kw.TVSeries = lowerAll(kw.TVSeries)

	return &Classifier{
		brand:       strings.TrimSpace(brand),
		gamesMarker: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.TrimSpace(brand)+"GAMES")),
		keywords:    kw,
	}
}

// Brand returns the suffix appended to every canonical name.
func (c *Classifier) Brand() string {
	return c.brand
}

// Classify derives the canonical name and category for rawName.
// sourceLabel is the display name of the chat the file came from and may be empty.
func (c *Classifier) Classify(rawName, sourceLabel string) Result {
	name := strings.TrimSpace(strings.ReplaceAll(rawName, "_", " "))

	if loc := episodeMarker.FindStringIndex(name); loc != nil {
		series := cleanTitle(name[:loc[0]])
		marker := strings.ToUpper(name[loc[0]:loc[1]])
		return Result{
			Name:     c.compose(series, marker, quality(name)),
			Category: catalog.TVSeries,
		}
	}

	if m := yearToken.FindStringSubmatchIndex(name); m != nil {
		title := cleanTitle(name[:m[0]])
		year := "(" + name[m[2]:m[3]] + ")"
		return Result{
			Name:     c.compose(title, year, quality(name)),
			Category: catalog.Movies,
		}
	}

	if strings.Contains(strings.ToUpper(sourceLabel), "GAMES") {
		stripped := c.gamesMarker.ReplaceAllString(name, "")
		return Result{
			Name:     c.compose(stripped),
			Category: catalog.Games,
		}
	}

	if cat, ok := c.byKeyword(strings.ToLower(name)); ok {
		return Result{Name: c.compose(name), Category: cat}
	}

	return Result{Name: c.compose(name), Category: catalog.Movies}
}

func (c *Classifier) byKeyword(lower string) (catalog.Category, bool) {
	if containsAny(lower, c.keywords.Games) {
		return catalog.Games, true
	}
	if containsAny(lower, c.keywords.Music) {
		return catalog.Music, true
	}
	if containsAny(lower, c.keywords.TVSeries) || shortTVMarker.MatchString(lower) {
		return catalog.TVSeries, true
	}
	return "", false
}

// compose joins the non-empty parts and the brand with single spaces.
func (c *Classifier) compose(parts ...string) string {
	joined := strings.Join(append(parts, c.brand), " ")
	return strings.TrimSpace(spaces.ReplaceAllString(joined, " "))
}

// cleanTitle turns a dotted release prefix like "Movie.Title." into "Movie Title".
func cleanTitle(prefix string) string {
	t := titleSep.ReplaceAllString(prefix, " ")
	return strings.Trim(t, " -")
}

func quality(name string) string {
	m := qualityToken.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
