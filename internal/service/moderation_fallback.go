package service

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// Deterministic moderation used when the classifier is unavailable or its
// output fails validation. Produces the same verdict shape with a fixed,
// lower confidence and a best-effort category.

var profanityWords = []string{
	"asshole", "bastard", "bitch", "bullshit", "crap", "cunt",
	"damn", "dick", "fuck", "fucking", "motherfucker", "piss",
	"prick", "shit", "slut", "whore",
}

var promoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bfree\s+(money|cash|gift|prize)\b`),
	regexp.MustCompile(`(?i)\bclick\s+(here|now)\b`),
	regexp.MustCompile(`(?i)\bbuy\s+now\b`),
	regexp.MustCompile(`(?i)\blimited\s+time\s+offer\b`),
	regexp.MustCompile(`(?i)\bact\s+now\b`),
	regexp.MustCompile(`(?i)\b(earn|make)\s+\$?\d+`),
	regexp.MustCompile(`(?i)100%\s+(free|guaranteed)`),
	regexp.MustCompile(`(?i)\bwork\s+from\s+home\b`),
	regexp.MustCompile(`(?i)\bcongratulations\b.{0,40}\b(won|winner)\b`),
}

var repeatedCharPattern = regexp.MustCompile(`(.)\1{5,}`)

func fallbackModeration(title, description string, confidence float64) domain.ModerationVerdict {
	content := strings.ToLower(title + " " + description)

	for _, word := range profanityWords {
		if containsWord(content, word) {
			return domain.ModerationVerdict{
				IsHarmful:  true,
				Confidence: confidence,
				Category:   domain.ModerationCategoryProfanity,
				Reason:     "contains blocked language",
			}
		}
	}

	for _, pattern := range promoPatterns {
		if pattern.MatchString(content) {
			return domain.ModerationVerdict{
				IsHarmful:  true,
				Confidence: confidence,
				Category:   domain.ModerationCategorySpam,
				Reason:     "matches promotional content pattern",
			}
		}
	}

	if excessiveCaps(title+" "+description) || repeatedCharPattern.MatchString(content) {
		return domain.ModerationVerdict{
			IsHarmful:  true,
			Confidence: confidence,
			Category:   domain.ModerationCategoryInappropriate,
			Reason:     "excessive capitalization or character repetition",
		}
	}

	return domain.ModerationVerdict{
		IsHarmful:  false,
		Confidence: confidence,
		Category:   domain.ModerationCategoryNone,
		Reason:     "no violation detected by heuristic scan",
	}
}

func containsWord(content, word string) bool {
	idx := 0
	for {
		i := strings.Index(content[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(rune(content[start-1]))
		afterOK := end == len(content) || !isWordChar(rune(content[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// excessiveCaps flags content where most letters are uppercase. Short strings
// are exempt so acronyms like "VPN" do not trip it.
func excessiveCaps(content string) bool {
	var letters, upper int
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 12 {
		return false
	}
	return float64(upper)/float64(letters) > 0.7
}
