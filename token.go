package bmschart

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

type DirectiveKind int

const (
	HeaderDirective DirectiveKind = iota
	ChannelDirective
)

// Directive is one classified "#" line.
// Header: Command (upper case), Index (upper case, may be empty), Value.
// Channel: Measure, Channel, Data.
type Directive struct {
	Kind    DirectiveKind
	Command string
	Index   string
	Value   string
	Measure int
	Channel int
	Data    string
}

var (
	headerPattern  = regexp.MustCompile(`^#([A-Za-z][A-Za-z0-9]*)[ \t]+(.*)$`)
	channelPattern = regexp.MustCompile(`^#([0-9]{3})([0-9]{2}):(.*)$`)
)

// indexed tables take a 2 character [0-9A-Za-z] index after the command name
var indexedCommands = []string{"WAV", "BMP", "BPM", "STOP"}

// ParseLine classifies a single line. Blank lines, "*" comments and anything
// matching neither grammar report false.
func ParseLine(line string) (Directive, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '#' {
		return Directive{}, false
	}

	if m := channelPattern.FindStringSubmatch(line); m != nil {
		measure, _ := strconv.Atoi(m[1])
		channel, _ := strconv.Atoi(m[2])
		return Directive{
			Kind:    ChannelDirective,
			Measure: measure,
			Channel: channel,
			Data:    strings.TrimSpace(m[3]),
		}, true
	}

	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return Directive{}, false
	}
	command, index := splitCommand(strings.ToUpper(m[1]))
	return Directive{
		Kind:    HeaderDirective,
		Command: command,
		Index:   index,
		Value:   strings.TrimSpace(m[2]),
	}, true
}

func splitCommand(word string) (string, string) {
	for _, c := range indexedCommands {
		if len(word) == len(c)+2 && strings.HasPrefix(word, c) {
			return c, word[len(c):]
		}
	}
	return word, ""
}

// SplitObjects splits channel data into 2 character codes. A trailing odd
// character is dropped.
func SplitObjects(data string) []string {
	n := len(data) / 2
	codes := make([]string, n)
	for i := 0; i < n; i++ {
		codes[i] = strings.ToUpper(data[i*2 : i*2+2])
	}
	return codes
}

const (
	initialBufSize = 10000
	maxBufSize     = 1000000
)

var ErrLineTooLong = errors.New("line too long")

// scanLines calls fn for every line of r with its 1-based line number.
func scanLines(r io.Reader, fn func(n int, line string)) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, initialBufSize)
	scanner.Buffer(buf, maxBufSize)

	n := 0
	for scanner.Scan() {
		n++
		fn(n, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return &DecodeError{Op: "scan", Line: n + 1, Err: ErrLineTooLong}
		}
		return &DecodeError{Op: "scan", Line: n + 1, Err: err}
	}
	return nil
}

// ScanDirectives reads text line by line and calls fn for every recognised
// directive. It fails only when the reader fails.
func ScanDirectives(r io.Reader, fn func(d Directive)) error {
	return scanLines(r, func(_ int, line string) {
		if d, ok := ParseLine(line); ok {
			fn(d)
		}
	})
}

type DecodeError struct {
	Path string
	Op   string
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("bms decode")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Op, e.Err)
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
