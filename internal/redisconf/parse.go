package redisconf

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Directives maps a lower-case directive name to its arguments.
type Directives map[string][]string

// Get returns the first argument of key, or "" if key is absent or has no
// arguments.
func (d Directives) Get(key string) string {
	if args := d[key]; len(args) > 0 {
		return args[0]
	}
	return ""
}

// Parse reads redis.conf content. Blank lines and comments are skipped and
// for a repeated directive the last line wins. Lines are split into
// arguments the way redis-server does it: whitespace separates tokens,
// double quotes allow \xHH, \n, \r, \t, \b and \a escapes, single quotes
// allow only \', and a closing quote must end the token.
func Parse(content string) (Directives, error) {
	out := make(Directives)
	sc := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := SplitArgs(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out[strings.ToLower(args[0])] = args[1:]
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	return out, nil
}

var errUnbalancedQuotes = errors.New("unbalanced quotes in configuration line")

// SplitArgs tokenizes one configuration line. It returns at least one
// argument for a non-blank line.
func SplitArgs(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return args, nil
		}

		var (
			cur       strings.Builder
			inDouble  bool
			inSingle  bool
			tokenDone bool
		)
		for !tokenDone {
			if i >= len(line) {
				if inDouble || inSingle {
					return nil, errUnbalancedQuotes
				}
				break
			}
			c := line[i]
			switch {
			case inDouble:
				switch {
				case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
					n, _ := strconv.ParseUint(line[i+2:i+4], 16, 8)
					cur.WriteByte(byte(n))
					i += 3
				case c == '\\' && i+1 < len(line):
					i++
					cur.WriteByte(unescape(line[i]))
				case c == '"':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					tokenDone = true
				default:
					cur.WriteByte(c)
				}
			case inSingle:
				switch {
				case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
					i++
					cur.WriteByte('\'')
				case c == '\'':
					if i+1 < len(line) && !isSpace(line[i+1]) {
						return nil, errUnbalancedQuotes
					}
					tokenDone = true
				default:
					cur.WriteByte(c)
				}
			default:
				switch {
				case isSpace(c):
					tokenDone = true
				case c == '"':
					inDouble = true
				case c == '\'':
					inSingle = true
				default:
					cur.WriteByte(c)
				}
			}
			i++
		}
		args = append(args, cur.String())
	}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'a':
		return '\a'
	default:
		return c
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == 0
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
