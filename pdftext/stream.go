package pdftext

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"
)

// literalRe matches PDF string literals: (text here).
var literalRe = regexp.MustCompile(`\(([^)]*)\)`)

// streamText walks a page content stream line by line and assembles the
// text-showing operators: Tj, TJ arrays, the ' line-advance variant, and
// the Td/TD/T* positioning operators that imply word or line breaks.
func streamText(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeLiterals(&sb, line, "")
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			writeLiterals(&sb, line, "\n")
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return tidy(sb.String())
}

func writeLiterals(sb *strings.Builder, line []byte, prefix string) {
	for _, m := range literalRe.FindAllSubmatch(line, -1) {
		if text := decodeLiteral(m[1]); text != "" {
			sb.WriteString(prefix)
			sb.WriteString(text)
		}
	}
}

// decodeLiteral resolves PDF string escapes, including up to three octal
// digits (\040 is a space).
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(c)
		default:
			if c < '0' || c > '7' {
				sb.WriteByte(c)
				continue
			}
			val := int(c - '0')
			for d := 0; d < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; d++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// tidy collapses whitespace runs and drops unprintable runes.
func tidy(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
