package search

import (
	"strings"

	"golang.org/x/text/cases"
)

// arabicFold maps Arabic letter variants that customers type interchangeably
// onto one form, and drops tatweel and the common diacritics.
var arabicFold = strings.NewReplacer(
	"أ", "ا", "إ", "ا", "آ", "ا", "ٱ", "ا",
	"ة", "ه",
	"ى", "ي",
	"ؤ", "و",
	"ئ", "ي",
	"ـ", "",
	"ً", "", "ٌ", "", "ٍ", "", "َ", "",
	"ُ", "", "ِ", "", "ّ", "", "ْ", "",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
)

// Normalize case-folds s and folds Arabic spelling variants and digits, so
// "آيفون ١٥" and "ايفون 15" compare equal.
func Normalize(s string) string {
	return arabicFold.Replace(cases.Fold().String(s))
}
