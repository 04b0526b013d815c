// Package dialog implements the scripted coaching conversation: a fixed set of
// utterance patterns and a finite-state transition table over them.
//
// Everything in this package is a pure function of its inputs. Side effects
// are returned to the caller as Directive values.
package dialog

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Pattern names a class of utterances the scripted coach recognizes.
type Pattern string

const (
	// PatternNone is the zero value; it never matches.
	PatternNone Pattern = ""
	// PatternBackOrHelp: "i'm back" / "i am back" / "i need help" / "need help".
	PatternBackOrHelp Pattern = "back-or-help"
	// PatternOKOnly: the whole utterance is one of ok, okay, oui, yes.
	PatternOKOnly Pattern = "ok-only"
	// PatternOKThanks: "ok thanks" / "ok, thanks" / "okay thanks" / "merci".
	PatternOKThanks Pattern = "ok-thanks"
	// PatternDoneOrBack: "i'm back" / "i am back" / "done" / "finished" / "fini" / "terminé".
	PatternDoneOrBack Pattern = "done-or-back"
)

// Word boundaries are spelled out with Unicode letter classes because RE2's \b
// only knows ASCII word characters and would reject "terminé" at end of input.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:[^\p{L}\p{N}_]|$)`
)

func phrase(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + wordStart + `(?:` + alternatives + `)` + wordEnd)
}

type rule struct {
	pattern Pattern
	re      *regexp.Regexp
}

// rules is ordered; Classify reports matches in this order.
var rules = []rule{
	{PatternBackOrHelp, phrase(`i['’]?m\s+back|i\s+am\s+back|i\s+need\s+help|need\s+help`)},
	{PatternOKOnly, regexp.MustCompile(`(?i)^\s*(?:ok|okay|oui|yes)\s*$`)},
	{PatternOKThanks, phrase(`ok\s*,?\s*thanks?|okay\s*,?\s*thanks?|merci`)},
	{PatternDoneOrBack, phrase(`i['’]?m\s+back|i\s+am\s+back|done|finished|fini|terminé`)},
}

// Normalize prepares raw user text for matching: Unicode NFC composition,
// surrounding whitespace trimmed, lower-cased.
func Normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(utterance)))
}

// Matches reports whether the utterance belongs to pattern p. The utterance is
// normalized first; PatternNone and unknown patterns never match.
func Matches(utterance string, p Pattern) bool {
	text := Normalize(utterance)
	for _, r := range rules {
		if r.pattern == p {
			return r.re.MatchString(text)
		}
	}
	return false
}

// Classify returns every pattern the utterance matches, in rule order.
// An empty utterance matches nothing.
func Classify(utterance string) []Pattern {
	text := Normalize(utterance)
	if text == "" {
		return nil
	}
	var matched []Pattern
	for _, r := range rules {
		if r.re.MatchString(text) {
			matched = append(matched, r.pattern)
		}
	}
	return matched
}
