package autofix

import "fmt"

// ValidateCode is a cheap structural sanity check on generated source:
// balanced brackets outside string literals and comments, and an even
// number of backticks. It is a smoke test, not a parser; code that passes
// can still be broken.
func ValidateCode(code string) error {
	var parens, braces, squares, backticks int
	var inSingle, inDouble, inLineComment, inBlockComment, escaped bool

	for i := 0; i < len(code); i++ {
		c := code[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
			}
		case inBlockComment:
			if c == '*' && i+1 < len(code) && code[i+1] == '/' {
				inBlockComment = false
				i++
			}
		case inSingle:
			switch c {
			case '\\':
				escaped = true
			case '\'', '\n':
				inSingle = false
			}
		case inDouble:
			switch c {
			case '\\':
				escaped = true
			case '"', '\n':
				inDouble = false
			}
		default:
			switch c {
			case '/':
				if i+1 < len(code) {
					switch code[i+1] {
					case '/':
						inLineComment = true
						i++
					case '*':
						inBlockComment = true
						i++
					}
				}
			case '\'':
				inSingle = true
			case '"':
				inDouble = true
			case '`':
				backticks++
			case '(':
				parens++
			case ')':
				parens--
			case '{':
				braces++
			case '}':
				braces--
			case '[':
				squares++
			case ']':
				squares--
			}
			if parens < 0 || braces < 0 || squares < 0 {
				return fmt.Errorf("unbalanced brackets: closing bracket without opener near byte %d", i)
			}
		}
	}

	if parens != 0 || braces != 0 || squares != 0 {
		return fmt.Errorf("unbalanced brackets: %d parens, %d braces, %d squares left open", parens, braces, squares)
	}
	if backticks%2 != 0 {
		return fmt.Errorf("odd number of backticks (%d), likely an unterminated template literal", backticks)
	}
	return nil
}
