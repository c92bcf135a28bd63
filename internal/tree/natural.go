package tree

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// A collate.Collator is not safe for concurrent use.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
	},
}

type run struct {
	text    string
	numeric bool
}

// runs splits s into alternating digit and non-digit runs.
func runs(s string) []run {
	var out []run
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			out = append(out, run{text: s[start:i], numeric: isDigit(s[start])})
			start = i
		}
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// compareNumeric compares two digit runs by value without overflowing.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// NaturalCompare orders names so embedded numbers compare by value
// ("slide2" < "slide10") and text compares case-insensitively under the root
// locale. Names that are equal under those rules fall back to byte order so
// the ordering stays total.
func NaturalCompare(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)

	ar, br := runs(a), runs(b)
	for i := 0; i < len(ar) || i < len(br); i++ {
		if i >= len(ar) {
			return -1
		}
		if i >= len(br) {
			return 1
		}
		x, y := ar[i], br[i]
		var cmp int
		if x.numeric && y.numeric {
			cmp = compareNumeric(x.text, y.text)
		} else {
			cmp = c.CompareString(x.text, y.text)
		}
		if cmp != 0 {
			return cmp
		}
	}
	return strings.Compare(a, b)
}
