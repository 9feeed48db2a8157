package paths

import (
	"strings"
)

// DataRoot is the root folder of the exported database inside the backup zip
const DataRoot = "db/mom-data"

// ContentsFile is the directory descriptor name eXist writes into every folder
const ContentsFile = "__contents__.xml"

// CorrectFilename makes a filename from a directory descriptor match the
// actual entry name in the zip. The exporter leaves entity escapes behind.
func CorrectFilename(filename string) string {
	return strings.ReplaceAll(filename, "&amp;", "&")
}

// Join joins archive-internal path segments with forward slashes.
// Archive paths never use the OS separator.
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			part = strings.TrimRight(part, "/")
		} else {
			part = strings.Trim(part, "/")
		}
		if part == "" {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, "/")
}

// Data joins segments below DataRoot
func Data(parts ...string) string {
	return Join(append([]string{DataRoot}, parts...)...)
}

// StripSuffix removes the first occurrence of suffix and everything after it.
// "abc.cei.xml" with ".cei.xml" gives "abc".
func StripSuffix(file, suffix string) string {
	if i := strings.Index(file, suffix); i >= 0 {
		return file[:i]
	}
	return file
}

// LastSegment returns the part after the last slash
func LastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
