package row

import (
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

// FileRow is one decoded directory entry. Rows are immutable values: Encode
// never mutates its input, and a changed row (e.g. toggled mark) is a new
// value, not shared state across renders.
type FileRow struct {
	Directory     string
	Name          string
	IsDirectory   bool
	IsRegularFile bool

	// Owner/Group are display names; the empty string means absent identity
	// metadata. Absence renders as "-", never the literal words "undefined"
	// or "null" (those are reserved and decode back to absent).
	Owner string
	Group string

	SizeBytes int64

	// Month is either a 3-letter token ("Jun") or a numeric token kept for
	// backward compatibility with older captures.
	Month  string
	Day    int
	Hour   int
	Minute int

	// ModeToken is 10 characters: 'd' or '-' followed by 9 permission chars.
	ModeToken string

	Marked bool

	// FilenameColumn is the 0-based offset of Name within the rendered line,
	// recorded at encode/decode time so consumers never rescan the line.
	FilenameColumn int
}

// Placeholders that render or decode as an absent owner/group value.
const absentField = "-"

// strictLine matches an encoder-shaped line. Owner, group, size and month
// are runs of non-space characters; the name is the remainder of the line
// and may itself contain spaces.
var strictLine = regexp.MustCompile(`^(?:([* ]) )?([d-][rwxsStT-]{9}) +(\S+) +(\S+) +(\S+) +(\S+) +(\S+) +(\d{1,2}):(\d{2}) (.+)$`)

// timeToken matches an HH:MM-shaped token anywhere in a line. The fallback
// decoder anchors the filename after the last such token.
var timeToken = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)

// Encode renders the row as a fixed-column listing line and returns the line
// together with the column at which the filename begins. Re-encoding the
// same row always yields the same bytes.
func Encode(r FileRow) (line string, filenameColumn int) {
	marker := byte(' ')
	if r.Marked {
		marker = '*'
	}

	mode := r.ModeToken
	if len(mode) != 10 {
		mode = ModeToken(r.IsDirectory, 0)
	}

	prefix := fmt.Sprintf("%c %s %s %s %8s %s %02d %02d:%02d ",
		marker,
		mode,
		fieldOrDash(r.Owner),
		fieldOrDash(r.Group),
		FormatSize(r.SizeBytes),
		monthToken(r.Month),
		r.Day,
		r.Hour,
		r.Minute,
	)
	return prefix + r.Name, len(prefix)
}

// Decode parses a listing line back into a FileRow. It composes two
// strategies: a strict structured match for encoder-shaped lines, then a
// token-scanning fallback for arbitrary user text. Decode never fails; the
// fallback yields zeroed metadata with a best-effort name.
func Decode(directory, line string) FileRow {
	if r, ok := strictDecode(directory, line); ok {
		return r
	}
	return fallbackDecode(directory, line)
}

// strictDecode extracts every field from an encoder-shaped line, computing
// the filename column from the match offset of the name group.
func strictDecode(directory, line string) (FileRow, bool) {
	idx := strictLine.FindStringSubmatchIndex(line)
	if idx == nil {
		return FileRow{}, false
	}

	group := func(n int) string {
		start, end := idx[2*n], idx[2*n+1]
		if start < 0 {
			return ""
		}
		return line[start:end]
	}

	mode := group(2)
	r := FileRow{
		Directory:      directory,
		Marked:         group(1) == "*",
		ModeToken:      mode,
		IsDirectory:    mode[0] == 'd',
		IsRegularFile:  mode[0] != 'd',
		Owner:          presentField(group(3)),
		Group:          presentField(group(4)),
		SizeBytes:      ParseSize(presentField(group(5))),
		Month:          presentField(group(6)),
		Day:            atoi(group(7)),
		Hour:           atoi(group(8)),
		Minute:         atoi(group(9)),
		Name:           group(10),
		FilenameColumn: idx[20],
	}
	return r, true
}

// fallbackDecode handles lines that do not match the fixed pattern, e.g.
// free text the user typed into the buffer. The name is anchored after the
// last HH:MM-shaped token when one exists; otherwise it is the last
// whitespace-delimited token, or the whole trimmed line.
func fallbackDecode(directory, line string) FileRow {
	r := FileRow{Directory: directory, IsRegularFile: true}

	if locs := timeToken.FindAllStringIndex(line, -1); len(locs) > 0 {
		rest := line[locs[len(locs)-1][1]:]
		trimmed := strings.TrimSpace(rest)
		r.Name = trimmed
		if trimmed != "" {
			r.FilenameColumn = locs[len(locs)-1][1] + strings.Index(rest, trimmed)
		}
		return r
	}

	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		// Blank or whitespace-only line: empty name, column 0.
	case 1:
		r.Name = fields[0]
		r.FilenameColumn = strings.Index(line, fields[0])
	default:
		name := fields[len(fields)-1]
		r.Name = name
		r.FilenameColumn = strings.LastIndex(line, name)
	}
	return r
}

// ModeToken builds the 10-character mode string for a row: 'd' or '-'
// followed by the rwx permission triplets. Symlinks and specials are
// rendered as regular files.
func ModeToken(isDir bool, perm fs.FileMode) string {
	var b strings.Builder
	if isDir {
		b.WriteByte('d')
	} else {
		b.WriteByte('-')
	}
	bits := perm.Perm()
	for shift := 6; shift >= 0; shift -= 3 {
		triplet := (bits >> uint(shift)) & 7
		if triplet&4 != 0 {
			b.WriteByte('r')
		} else {
			b.WriteByte('-')
		}
		if triplet&2 != 0 {
			b.WriteByte('w')
		} else {
			b.WriteByte('-')
		}
		if triplet&1 != 0 {
			b.WriteByte('x')
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func fieldOrDash(s string) string {
	if s == "" {
		return absentField
	}
	return s
}

// presentField maps the render-time placeholders back to absent.
func presentField(s string) string {
	switch strings.ToLower(s) {
	case absentField, "undefined", "null":
		return ""
	}
	return s
}

// monthToken keeps 3-letter month tokens as-is and zero-pads numeric ones.
func monthToken(m string) string {
	if len(m) == 3 && !isDigits(m) {
		return m
	}
	return fmt.Sprintf("%02d", atoi(m))
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
