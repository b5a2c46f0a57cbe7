package gitblame

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/jgbarah-chaoss/grimoirelab-perceval/internal/core/domain"
)

// BlameOutput parses the bytes produced by git blame in incremental
// porcelain format into attribution records.
type BlameOutput struct {
	text []byte
}

// NewBlameOutput wraps raw blame bytes for analysis.
func NewBlameOutput(text []byte) BlameOutput {
	return BlameOutput{text: text}
}

// Text returns the raw bytes being analysed.
func (o BlameOutput) Text() []byte {
	return o.text
}

// Analyze parses the output into attribution records, one per line-range
// group, in the order the groups appear.
//
// Each group begins with a header line `hash prevLine thisLine lineCount`.
// The first group for a given (hash, prevLine, thisLine) triple carries
// full metadata lines (author, committer, summary, ...) followed by a
// `filename path` line; later groups for the same triple are abbreviated
// to header plus filename, and the abbreviated record carries only those
// fields - metadata is never re-emitted for it. The triple memo is scoped
// to one Analyze call.
//
// A header line with the wrong token count fails with *ParseError.
func (o BlameOutput) Analyze() ([]domain.Record, error) {
	var (
		records []domain.Record
		cur     domain.Record
		full    bool
		lineNo  int
	)
	seen := make(map[string]bool)

	sc := bufio.NewScanner(bytes.NewReader(o.text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if cur == nil {
			fields := strings.Fields(line)
			if len(fields) != 4 {
				return nil, &ParseError{Line: lineNo, Text: line}
			}
			cur = domain.Record{
				"hash":      fields[0],
				"prev_line": fields[1],
				"this_line": fields[2],
				"lines":     fields[3],
			}
			key := fields[0] + " " + fields[1] + " " + fields[2]
			full = !seen[key]
			seen[key] = true
			continue
		}

		key, value, _ := strings.Cut(line, " ")
		if key == "filename" {
			cur["filename"] = value
			records = append(records, cur)
			cur = nil
			continue
		}
		if !full {
			// Abbreviated groups carry nothing between header and filename.
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		cur[key] = value
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading blame output: %w", err)
	}

	// Tolerate a group truncated before its filename line.
	if cur != nil {
		records = append(records, cur)
	}
	return records, nil
}
