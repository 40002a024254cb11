package sanitize

import "regexp"

// unsafeChars matches every character outside the allowed alphabet:
// ASCII word characters, Cyrillic letters, dot and hyphen. Everything
// else (path separators included) is rewritten to an underscore.
var unsafeChars = regexp.MustCompile(`[^\wа-яА-ЯёЁ.\-]`)

// Filename maps an arbitrary client-supplied filename to a string safe
// for use as a single path component. The result never contains '/'
// or '\' and the original extension survives untouched.
func Filename(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}
