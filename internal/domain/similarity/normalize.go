// Package similarity compares invoice supplier names with bank vendor labels.
//
// Both sides are normalized the same way: lowercased, diacritics and
// punctuation stripped, whitespace collapsed, then split into tokens.
// Legal-entity suffixes, generic corporate words, bank-label prefixes and
// pure-digit references are dropped because they carry no identity:
//
//	"Orange Business"          -> [orange]
//	"PRLV SEPA ORANGE SA 4471" -> [orange]
package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseTokens never identify a counterparty on their own.
var noiseTokens = map[string]bool{
	// legal forms
	"sa": true, "sas": true, "sasu": true, "sarl": true, "eurl": true, "sci": true, "snc": true,
	"inc": true, "ltd": true, "llc": true, "plc": true, "corp": true, "co": true,
	"gmbh": true, "ag": true, "bv": true, "nv": true, "spa": true, "srl": true,
	// generic descriptors
	"business": true, "services": true, "service": true, "group": true, "groupe": true,
	"company": true, "compagnie": true, "holding": true, "international": true,
	"the": true, "and": true, "et": true, "de": true, "du": true, "des": true,
	"la": true, "le": true, "les": true,
	// bank statement prefixes
	"prlv": true, "sepa": true, "vir": true, "virement": true, "cb": true, "carte": true,
	"paiement": true, "payment": true, "pos": true, "ref": true,
}

// Tokens returns the normalized identity tokens of s in their original order.
// If every token is noise, the unfiltered tokens are returned instead so
// that a name made only of generic words still compares against itself.
func Tokens(s string) []string {
	fields := strings.Fields(clean(s))
	if len(fields) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if noiseTokens[f] || isDigits(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	if len(tokens) == 0 {
		return fields
	}
	return tokens
}

// Normalize returns the normalized form of s as a single space-separated string.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// clean lowercases s, strips diacritics and replaces anything that is not a
// letter or digit with a space.
func clean(s string) string {
	// transform chains keep state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, stripped)
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
