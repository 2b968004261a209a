package git

import "strings"

// StatusEntry is one line of git status output.
type StatusEntry struct {
	// Code is the two-letter XY status, e.g. " M", "A ", "??".
	Code string

	// Path is the file's current name, relative to the working tree root.
	Path string

	// OrigPath is the previous name for renames and copies.
	OrigPath string
}

// Untracked reports whether git does not know about the path yet.
func (e StatusEntry) Untracked() bool {
	return e.Code == "??"
}

// ParseStatus parses `git status --porcelain=v1 -z` output. Rename and copy
// entries carry the destination first and the source in the next field.
func ParseStatus(out string) []StatusEntry {
	fields := strings.Split(out, "\x00")

	var entries []StatusEntry
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if len(field) < 4 || field[2] != ' ' {
			continue
		}

		entry := StatusEntry{Code: field[:2], Path: field[3:]}
		if isRenameOrCopy(entry.Code) && i+1 < len(fields) {
			i++
			entry.OrigPath = fields[i]
		}
		entries = append(entries, entry)
	}
	return entries
}

func isRenameOrCopy(code string) bool {
	return strings.ContainsAny(code, "RC")
}
