package meta

import (
	"os"
	"strings"
	"unicode"
)

// expandEnvExpr substitutes every ${env.KEY} occurrence with the value of
// the KEY environment variable, or an empty string when unset. Malformed
// expressions are kept verbatim.
func expandEnvExpr(value string) string {
	const marker = "${env."
	var out strings.Builder
	offset := 0
	for {
		pos := strings.Index(value[offset:], marker)
		if pos < 0 {
			out.WriteString(value[offset:])
			break
		}
		out.WriteString(value[offset : offset+pos])
		keyStart := offset + pos + len(marker)

		closing := strings.IndexByte(value[keyStart:], '}')
		if closing < 0 {
			out.WriteString(value[offset+pos:])
			break
		}
		key := value[keyStart : keyStart+closing]
		if isEnvKey(key) {
			out.WriteString(os.Getenv(key))
			offset = keyStart + closing + 1
			continue
		}
		// keep the marker literal and rescan what follows it so nested
		// expressions still expand
		out.WriteString(value[offset+pos : keyStart])
		offset = keyStart
	}
	return out.String()
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
