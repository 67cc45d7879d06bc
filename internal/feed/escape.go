package feed

import "strings"

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeText folds every line ending to LF. TEXT escaping of backslash,
// semicolon, comma and LF is left to the serializer.
func normalizeText(s string) string {
	return newlines.Replace(s)
}
