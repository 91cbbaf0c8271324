package answer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/divan/num2words"
)

var errNumberTooLarge = errors.New("number too large to spell")

// num2words spells at most four three-digit groups.
const maxSpelled = 999_999_999_999

var digitWords = [...]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

// spellNumber turns a numeral such as "7", "3.5" or "1,500" into English words.
// A comma followed by exactly three digits groups thousands, otherwise it is a decimal mark.
func spellNumber(numeral string) (string, error) {
	if i := strings.IndexAny(numeral, ".,"); i >= 0 {
		whole, frac, sep := numeral[:i], numeral[i+1:], numeral[i]
		if sep == ',' && len(frac) == 3 {
			return spellNumber(whole + frac)
		}
		words, err := spellNumber(whole)
		if err != nil {
			return "", err
		}
		digits := make([]string, 0, len(frac))
		for _, d := range frac {
			if d < '0' || d > '9' {
				return "", fmt.Errorf("spell %q: invalid digit %q", numeral, d)
			}
			digits = append(digits, digitWords[d-'0'])
		}
		return words + " point " + strings.Join(digits, " "), nil
	}

	n, err := strconv.ParseUint(numeral, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return "", fmt.Errorf("spell %q: %w", numeral, errNumberTooLarge)
		}
		return "", fmt.Errorf("spell %q: %w", numeral, err)
	}
	if n > maxSpelled {
		return "", fmt.Errorf("spell %q: %w", numeral, errNumberTooLarge)
	}
	return num2words.ConvertAnd(int(n)), nil
}
