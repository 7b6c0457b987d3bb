package draft

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Bounds are the word-count rules applied to article bodies.
type Bounds struct {
	MinWords int
	MaxWords int
	// TrimFraction is the share of the original word count kept when an overlong body is trimmed.
	TrimFraction float64
	// MinRefinedFraction is the share of the draft's words a refined body must keep.
	MinRefinedFraction float64
}

// DefaultBounds targets 600 to 900 word articles.
var DefaultBounds = Bounds{
	MinWords:           600,
	MaxWords:           900,
	TrimFraction:       0.9,
	MinRefinedFraction: 0.5,
}

var lookingAhead = []string{
	"As this technology continues to mature, we can expect to see even more innovative applications and improvements. The potential for transformation across various industries remains significant.",
	"Researchers and product teams are already testing ideas that were impractical only a few years ago. Each iteration lowers costs and widens the circle of people who can benefit.",
	"For readers following this space, the most useful habit is to watch how early adopters put these tools to work. Their results tend to show where the real value lies long before the headlines do.",
	"None of this happens in isolation. Standards bodies, regulators and open communities all shape how quickly new capabilities reach everyday products.",
}

var additionalInsights = []string{
	"This technology continues to evolve rapidly, with new applications emerging regularly. Industry experts predict significant growth in adoption over the coming months, driven by improved capabilities and broader understanding of potential use cases.",
	"The implications extend beyond immediate applications, potentially reshaping how we approach similar challenges across various sectors.",
	"Organizations that experiment early often gain practical knowledge that is hard to acquire later. Small pilots, honest measurement and a willingness to adjust course remain the most reliable path forward.",
}

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Cleanup is the provider-free refinement pass. It collapses adjacent repeated words and excess
// blank lines, pads bodies under MinWords with a "Looking ahead" section, and trims bodies over
// MaxWords to the longest sentence prefix within TrimFraction of the original word count.
func Cleanup(body string, b Bounds) string {
	body = CollapseRepeatedWords(body)
	body = excessNewlines.ReplaceAllString(body, "\n\n")
	body = strings.TrimSpace(body)

	words := WordCount(body)
	switch {
	case words < b.MinWords:
		body = pad(body, "## Looking ahead", lookingAhead, b.MinWords)
	case words > b.MaxWords:
		body = TrimToSentence(body, int(float64(words)*b.TrimFraction))
	}
	return body
}

// EnsureMinWords pads body with an "Additional insights" section until it has at least min words.
func EnsureMinWords(body string, min int) string {
	if WordCount(body) >= min {
		return body
	}
	return pad(body, "## Additional insights", additionalInsights, min)
}

func pad(body, heading string, paragraphs []string, min int) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(body, "\n "))
	sb.WriteString("\n\n")
	sb.WriteString(heading)

	words := WordCount(body) + WordCount(heading)
	for i := 0; words < min; i++ {
		p := paragraphs[i%len(paragraphs)]
		sb.WriteString("\n\n")
		sb.WriteString(p)
		words += WordCount(p)
	}
	return strings.TrimSpace(sb.String())
}

// CollapseRepeatedWords removes immediate case-insensitive repeats of a word, such as
// "the the" or "words Words.". Only repeats separated by spaces or tabs on the same line count.
func CollapseRepeatedWords(s string) string {
	out := make([]byte, 0, len(s))
	prev := ""     // previous word, lowercased
	gapStart := -1 // start of the blank run after prev

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isWordRune(r) {
			switch r {
			case ' ', '\t':
				if prev != "" && gapStart < 0 {
					gapStart = len(out)
				}
			default:
				prev = ""
				gapStart = -1
			}
			out = append(out, s[i:i+size]...)
			i += size
			continue
		}

		j := i
		for j < len(s) {
			r2, sz := utf8.DecodeRuneInString(s[j:])
			if !isWordRune(r2) {
				break
			}
			j += sz
		}
		word := strings.ToLower(s[i:j])

		if gapStart >= 0 && word == prev {
			out = out[:gapStart]
		} else {
			out = append(out, s[i:j]...)
			prev = word
		}
		gapStart = -1
		i = j
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// TrimToSentence returns the longest prefix of body that ends on a sentence boundary and has at
// most limit words. A boundary is '.', '!' or '?' followed by whitespace or the end of the text.
// When no such prefix exists the body is returned unchanged.
func TrimToSentence(body string, limit int) string {
	best := -1
	words := 0
	segStart := 0

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		end := i + 1
		if end < len(body) && !isSpace(body[end]) {
			continue
		}
		words += WordCount(body[segStart:end])
		segStart = end
		if words > limit {
			break
		}
		best = end
	}

	if best < 0 {
		return body
	}
	return strings.TrimSpace(body[:best])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
