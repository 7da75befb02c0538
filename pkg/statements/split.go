package statements

import "strings"

// state is the quoting context of the scanner.
type state int

const (
	stateNormal state = iota
	stateSingleQuote
	stateDoubleQuote
	stateDollarQuote
)

// String returns a readable name for the state.
func (s state) String() string {
	switch s {
	case stateNormal:
		return "normal"
	case stateSingleQuote:
		return "single-quote"
	case stateDoubleQuote:
		return "double-quote"
	case stateDollarQuote:
		return "dollar-quote"
	default:
		return "unknown"
	}
}

// splitter holds the scan position and the statement being accumulated.
type splitter struct {
	input string
	pos   int
	state state
	delim string // opening delimiter while in stateDollarQuote, e.g. "$h$"
	buf   strings.Builder
	out   []string
}

// Split segments text on top-level semicolons and returns the trimmed,
// non-empty statements in their original order.
//
// Semicolons inside single quotes, double quotes and dollar-quoted bodies
// are kept as statement content. A trailing statement without a
// terminating semicolon is still returned.
func Split(text string) []string {
	s := &splitter{input: text}
	for s.pos < len(s.input) {
		s.step()
	}
	s.flush()
	return s.out
}

// Count returns the number of statements Split would return for text.
func Count(text string) int {
	return len(Split(text))
}

// step consumes at least one byte of input according to the current state.
func (s *splitter) step() {
	switch s.state {
	case stateNormal:
		s.scanNormal()
	case stateSingleQuote:
		s.scanQuoted('\'')
	case stateDoubleQuote:
		s.scanQuoted('"')
	case stateDollarQuote:
		s.scanDollarQuoted()
	}
}

func (s *splitter) scanNormal() {
	ch := s.input[s.pos]
	switch ch {
	case ';':
		s.flush()
		s.pos++
		return
	case '\'':
		s.state = stateSingleQuote
	case '"':
		s.state = stateDoubleQuote
	case '$':
		if delim, ok := dollarDelimiter(s.input[s.pos:]); ok {
			s.buf.WriteString(delim)
			s.pos += len(delim)
			s.state = stateDollarQuote
			s.delim = delim
			return
		}
	}
	s.buf.WriteByte(ch)
	s.pos++
}

// scanQuoted handles both quote styles. A doubled quote character is an
// escaped literal and does not close the region.
func (s *splitter) scanQuoted(quote byte) {
	ch := s.input[s.pos]
	if ch != quote {
		s.buf.WriteByte(ch)
		s.pos++
		return
	}
	if s.peek() == quote {
		s.buf.WriteByte(quote)
		s.buf.WriteByte(quote)
		s.pos += 2
		return
	}
	s.buf.WriteByte(quote)
	s.pos++
	s.state = stateNormal
}

func (s *splitter) scanDollarQuoted() {
	if strings.HasPrefix(s.input[s.pos:], s.delim) {
		s.buf.WriteString(s.delim)
		s.pos += len(s.delim)
		s.state = stateNormal
		s.delim = ""
		return
	}
	s.buf.WriteByte(s.input[s.pos])
	s.pos++
}

// peek returns the byte after the current one, or 0 at end of input.
func (s *splitter) peek() byte {
	if s.pos+1 >= len(s.input) {
		return 0
	}
	return s.input[s.pos+1]
}

// flush emits the buffered statement if it is not blank and resets the buffer.
func (s *splitter) flush() {
	if stmt := strings.TrimSpace(s.buf.String()); stmt != "" {
		s.out = append(s.out, stmt)
	}
	s.buf.Reset()
}

// dollarDelimiter reports whether text starts with a dollar-quote opener
// ($$ or $tag$ with tag made of word characters) and returns it.
func dollarDelimiter(text string) (string, bool) {
	if len(text) < 2 || text[0] != '$' {
		return "", false
	}
	for i := 1; i < len(text); i++ {
		ch := text[i]
		if ch == '$' {
			return text[:i+1], true
		}
		if !isWordChar(ch) {
			return "", false
		}
	}
	return "", false
}

// isWordChar matches the \w class: ASCII letters, digits and underscore.
func isWordChar(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}
