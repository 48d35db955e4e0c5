// Package numeral converts grade tokens written as digits, Roman numerals or
// English words into integers, and folds combined Nottingham/Bloom-Richardson
// scores (3-9) onto the 1-3 grade scale.
package numeral

import "strings"

// CombinedScoreMax is the top of the Nottingham combined score. A numeral
// written "out of" this value is a combined score, not a grade.
const CombinedScoreMax = 9

// Pattern is a regexp fragment matching any token Parse understands, plus
// longer digit runs and Roman-looking runs that Parse rejects.
const Pattern = `\d+|i+[xv]?|vi*|x|one|two|three|four|five|six|seven|eight|nine`

var tokens = map[string]int{
	"1": 1, "i": 1, "one": 1,
	"2": 2, "ii": 2, "two": 2,
	"3": 3, "iii": 3, "three": 3,
	"4": 4, "iv": 4, "four": 4,
	"5": 5, "v": 5, "five": 5,
	"6": 6, "vi": 6, "six": 6,
	"7": 7, "vii": 7, "seven": 7,
	"8": 8, "viii": 8, "eight": 8,
	"9": 9, "ix": 9, "nine": 9,
}

// Parse returns the value 1-9 of a digit, Roman numeral or number word.
// Anything else returns 0, which callers treat as "no match".
func Parse(token string) int {
	return tokens[strings.ToLower(strings.TrimSpace(token))]
}

// NormalizeOrdinal maps a combined score onto the grade scale:
// below 6 is 1, 6-7 is 2, above 7 is 3.
func NormalizeOrdinal(n int) int {
	switch {
	case n < 6:
		return 1
	case n > 7:
		return 3
	default:
		return 2
	}
}

// IsCombinedDenominator reports whether n, used as "x of n", marks x as a
// combined score.
func IsCombinedDenominator(n int) bool {
	return n == CombinedScoreMax
}
