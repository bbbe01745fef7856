// Package keyparser splits a raw item key received from the wire into a
// name and an ordered argument list.
//
// Grammar:
//
//	raw_key := name [ '[' arglist ']' ] trailing_ws
//	arglist := arg (',' arg)*
//	arg     := quoted | bare
//	quoted  := '"' (escaped_quote | any_char_but_quote)* '"'
//	bare    := any_char_but_comma*
package keyparser

import (
	"strings"

	"github.com/blin/zabby-agent/internal/errors"
)

// Parse separates an item name from its bracketed argument list.
//
//	Parse("k")        -> ("k", nil, nil)
//	Parse("k[1]")     -> ("k", []string{"1"}, nil)
//	Parse("k[1,2]")   -> ("k", []string{"1", "2"}, nil)
//	Parse(`k["a,b"]`) -> ("k", []string{"a,b"}, nil)
//	Parse("k[1")      -> ("", nil, *errors.WrongArgumentError)
func Parse(rawKey string) (string, []string, error) {
	rawKey = strings.TrimRight(rawKey, " \t\r\n")

	open := strings.IndexByte(rawKey, '[')
	if open == -1 {
		return rawKey, nil, nil
	}

	name := rawKey[:open]
	if !strings.HasSuffix(rawKey, "]") {
		return "", nil, &errors.WrongArgumentError{
			Key:     name,
			Field:   "key",
			Value:   rawKey,
			Message: "missing closing bracket",
		}
	}

	args, err := parseArgList(rawKey[open+1 : len(rawKey)-1])
	if err != nil {
		if wa, ok := err.(*errors.WrongArgumentError); ok {
			wa.Key = name
		}
		return "", nil, err
	}
	return name, args, nil
}

// parseArgList scans a comma-separated argument list honoring double-quote
// grouping and backslash-escaped quotes within a quoted argument.
func parseArgList(raw string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inQuotes := false
	sawQuote := false
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case inQuotes && c == '\\' && i+1 < len(raw) && raw[i+1] == '"':
			cur.WriteByte('"')
			i += 2
			continue
		case c == '"':
			inQuotes = !inQuotes
			sawQuote = true
		case c == ',' && !inQuotes:
			args = append(args, finishArg(cur.String(), sawQuote))
			cur.Reset()
			sawQuote = false
			i++
			continue
		default:
			cur.WriteByte(c)
		}
		i++
	}

	if inQuotes {
		return nil, &errors.WrongArgumentError{
			Field:   "args",
			Value:   raw,
			Message: "unterminated quoted argument",
		}
	}

	args = append(args, finishArg(cur.String(), sawQuote))
	return args, nil
}

// finishArg strips surrounding whitespace from a bare argument. An argument
// that went through quote toggling has already had its delimiting quotes
// stripped by the scanner above and is kept verbatim.
func finishArg(s string, wasQuoted bool) string {
	if wasQuoted {
		return s
	}
	return strings.TrimSpace(s)
}
