package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

var transliterate = strings.NewReplacer(
	"&", " and ", "+", " plus ",
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c", "é", "e", "è", "e", "ê", "e", "ë", "e",
	"ğ", "g", "í", "i", "ì", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n", "ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ş", "s", "ß", "ss", "ú", "u", "ù", "u", "û", "u", "ü", "u",
)

// Generate creates a URL-friendly slug from a product name.
//
//	"HP Pavilion 15 Laptop"       -> "hp-pavilion-15-laptop"
//	"Logitech MK270 Wireless Combo" -> "logitech-mk270-wireless-combo"
//	"Décor & Storage"             -> "decor-and-storage"
func Generate(name string) string {
	s := transliterate.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
