package marketplace

import (
	"math"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CFARate is the fixed EUR to CFA franc parity.
const CFARate = 655

// cfaCountries lists the UEMOA and CEMAC members, folded (lower case, no accents),
// in French and English spellings.
var cfaCountries = map[string]struct{}{
	"senegal": {}, "cote d'ivoire": {}, "cote divoire": {}, "ivory coast": {},
	"mali": {}, "burkina faso": {}, "niger": {}, "togo": {}, "benin": {},
	"guinee-bissau": {}, "guinea-bissau": {}, "guinee bissau": {}, "guinea bissau": {},
	"cameroun": {}, "cameroon": {}, "gabon": {}, "tchad": {}, "chad": {},
	"congo": {}, "republique du congo": {}, "republic of the congo": {}, "congo-brazzaville": {},
	"centrafrique": {}, "republique centrafricaine": {}, "central african republic": {},
	"guinee equatoriale": {}, "equatorial guinea": {},
}

// IsCFAZone reports whether any comma-separated segment of location names a
// CFA franc country. Segments are compared whole so "Nigeria" is not "Niger".
func IsCFAZone(location string) bool {
	for _, seg := range strings.Split(location, ",") {
		if _, ok := cfaCountries[fold(seg)]; ok {
			return true
		}
	}
	return false
}

// FormatMoney renders a euro amount for someone located at location: CFA
// francs at the fixed parity inside the CFA zone, euros elsewhere. Thousands
// are grouped with spaces; cents only appear when non-zero.
func FormatMoney(amount float64, location string) string {
	if IsCFAZone(location) {
		return humanize.FormatInteger("# ###.", int(math.Round(amount*CFARate))) + " CFA"
	}
	if amount == math.Trunc(amount) {
		return humanize.FormatInteger("# ###.", int(amount)) + " €"
	}
	return humanize.FormatFloat("# ###,##", amount) + " €"
}

// fold lower-cases s and strips combining marks. Transformers are stateful,
// so each call builds its own chain.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "’", "'")
	return strings.ToLower(out)
}
