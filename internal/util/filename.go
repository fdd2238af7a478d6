package util

/*
SubHound: subdomain enumeration through certificate transparency search
Copyright (C) 2025  The SubHound authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameLength is NAME_MAX (255 bytes) minus the ".txt" suffix.
const maxFilenameLength = 255 - len(".txt")

// SanitizeFilename turns an arbitrary string (usually the queried domain) into a
// name that is safe to create in a single directory. Ordinary domain names pass
// through unchanged.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(input))
	// "." and ".." would resolve to directories.
	if replaced == "" || replaced == "." || replaced == ".." {
		replaced = "_"
	}
	if len(replaced) <= maxFilenameLength {
		return replaced
	}
	// Cut on a rune boundary so the name stays valid UTF-8.
	cut := maxFilenameLength
	for cut > 0 && !utf8.RuneStart(replaced[cut]) {
		cut--
	}
	return replaced[:cut]
}

// ResultFilePath returns the path of the results file for domain inside dir,
// i.e. "<dir>/<domain>.txt".
func ResultFilePath(dir, domain string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, SanitizeFilename(domain)+".txt")
}
