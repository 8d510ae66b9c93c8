package pathutil

import (
	"slices"
	"strings"
)

// NaturalCompare orders a and b the way people number pages: runs of digits
// compare by numeric value, other runs compare bytewise.
//
// Where one name has a digit run and the other does not, the non-digit run
// sorts first, so "cover.jpg" precedes "1.jpg". Names that are still equal
// fall back to a case-insensitive and then a plain byte comparison, which
// keeps the order total.
func NaturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		da, db := isDigit(a[i]), isDigit(b[j])
		switch {
		case da && db:
			ra, na := digitRun(a, i)
			rb, nb := digitRun(b, j)
			if c := compareNumeric(ra, rb); c != 0 {
				return c
			}
			i, j = na, nb
		case da != db:
			if da {
				return 1
			}
			return -1
		default:
			ra, na := textRun(a, i)
			rb, nb := textRun(b, j)
			if c := strings.Compare(ra, rb); c != 0 {
				// A shorter text run that is a prefix of the other is
				// followed by a digit or the end of the name.
				if strings.HasPrefix(rb, ra) && na < len(a) {
					return 1
				}
				if strings.HasPrefix(ra, rb) && nb < len(b) {
					return -1
				}
				return c
			}
			i, j = na, nb
		}
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	if c := compareFold(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// NaturalLess reports whether a sorts before b under NaturalCompare.
func NaturalLess(a, b string) bool {
	return NaturalCompare(a, b) < 0
}

// SortNatural sorts names in place in natural order.
func SortNatural(names []string) {
	slices.SortFunc(names, NaturalCompare)
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func digitRun(s string, i int) (string, int) {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	return s[i:j], j
}

func textRun(s string, i int) (string, int) {
	j := i
	for j < len(s) && !isDigit(s[j]) {
		j++
	}
	return s[i:j], j
}

// compareNumeric compares two digit strings by value. Equal values with
// fewer leading zeros sort first.
func compareNumeric(a, b string) int {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
