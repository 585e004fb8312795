// Package mnemonic renders a wallet's master derivation key as a 24-word
// BIP39 phrase and parses it back, with typo suggestions on bad input.
package mnemonic

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// WordCount is the length of a master derivation key phrase.
const WordCount = 24

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

//nolint:gochecknoglobals // compiled once
var (
	whitespaceRegex   = regexp.MustCompile(`\s+`)
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)
	bulletListRegex   = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)

	wordSetOnce sync.Once
	wordSet     map[string]struct{}
)

// FromKey encodes the key as a BIP39 phrase. The key is used directly as
// 256 bits of entropy.
func FromKey(mdk protocol.MasterDerivationKey) (string, error) {
	phrase, err := bip39.NewMnemonic(mdk[:])
	if err != nil {
		return "", fmt.Errorf("encoding mnemonic: %w", err)
	}
	return phrase, nil
}

// ToKey decodes a phrase produced by FromKey. Numbered or bulleted lists and
// stray punctuation are tolerated.
func ToKey(phrase string) (protocol.MasterDerivationKey, error) {
	var mdk protocol.MasterDerivationKey
	normalized := Normalize(phrase)
	words := strings.Fields(normalized)
	if len(words) != WordCount {
		return mdk, custerr.WithDetails(custerr.ErrInvalidMnemonic, map[string]string{
			"words": fmt.Sprintf("%d", len(words)),
		})
	}
	if typos := DetectTypos(normalized); len(typos) > 0 {
		return mdk, custerr.WithSuggestion(custerr.ErrInvalidMnemonic, FormatTypoSuggestions(typos))
	}

	entropy, err := bip39.EntropyFromMnemonic(normalized)
	if err != nil {
		return mdk, custerr.WithDetails(custerr.ErrInvalidMnemonic, map[string]string{"reason": "checksum"})
	}
	return protocol.MasterDerivationKeyFromBytes(entropy)
}

// Normalize lowercases the input, strips list markers and commas, and
// collapses whitespace.
func Normalize(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// IsValidWord reports whether word is in the English BIP39 list.
func IsValidWord(word string) bool {
	wordSetOnce.Do(func() {
		list := bip39.GetWordList()
		wordSet = make(map[string]struct{}, len(list))
		for _, w := range list {
			wordSet[w] = struct{}{}
		}
	})
	_, ok := wordSet[strings.ToLower(word)]
	return ok
}

// SuggestWord returns the closest BIP39 word within MaxTypoDistance, or "".
func SuggestWord(input string) string {
	input = strings.ToLower(input)
	best, bestDist := "", math.MaxInt
	for _, w := range bip39.GetWordList() {
		d := levenshtein.ComputeDistance(input, w)
		if d == 0 {
			return w
		}
		if d < bestDist {
			best, bestDist = w, d
		}
	}
	if bestDist <= MaxTypoDistance {
		return best
	}
	return ""
}

// Typo is a word not in the BIP39 list.
type Typo struct {
	Index      int
	Word       string
	Suggestion string
}

// DetectTypos lists every word of the phrase that is not a BIP39 word.
func DetectTypos(phrase string) []Typo {
	var typos []Typo
	for i, w := range strings.Fields(Normalize(phrase)) {
		if !IsValidWord(w) {
			typos = append(typos, Typo{Index: i, Word: w, Suggestion: SuggestWord(w)})
		}
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line, 1-indexed.
func FormatTypoSuggestions(typos []Typo) string {
	lines := make([]string, 0, len(typos))
	for _, t := range typos {
		if t.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("word %d: '%s', did you mean '%s'?", t.Index+1, t.Word, t.Suggestion))
		} else {
			lines = append(lines, fmt.Sprintf("word %d: '%s' is not a BIP39 word", t.Index+1, t.Word))
		}
	}
	return strings.Join(lines, "\n")
}
