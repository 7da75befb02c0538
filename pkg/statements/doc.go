// Package statements splits raw SQL text into independent statements.
//
// The splitter is not a parser. It only tracks enough lexical state to tell
// a top-level semicolon from one that sits inside a quoted region:
//
//   - single-quoted string literals ('it''s')
//   - double-quoted identifiers ("my""table")
//   - dollar-quoted bodies ($tag$ ... $tag$)
//
// Each returned statement is trimmed of surrounding whitespace and never
// empty. Statement bodies are otherwise returned verbatim, newlines and
// quoting included.
//
// # Basic Usage
//
//	for _, stmt := range statements.Split("SELECT 1; SELECT 2;") {
//	    fmt.Println(stmt)
//	}
//
// # Malformed input
//
// Unterminated quotes or dollar-quotes are not reported. The scan is linear
// and always terminates, but the statements produced from such input carry
// no guarantee beyond that.
package statements
