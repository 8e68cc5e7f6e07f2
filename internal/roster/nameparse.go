package roster

import "strings"

// SplitName splits a raw upstream name into (first, last). The upstream
// emits "LAST, FIRST MIDDLE SUFFIX" with a comma, or last-name-first token
// order without one, so without a comma the final token is the first name
// and the remaining tokens join into the last name. A single token is
// treated entirely as a first name. Internal whitespace runs are collapsed.
func SplitName(rawName string) (first string, last string) {
	normalized := strings.Join(strings.Fields(rawName), " ")
	if normalized == "" {
		return "", ""
	}

	if lastPart, firstPart, found := strings.Cut(normalized, ","); found {
		return strings.TrimSpace(firstPart), strings.TrimSpace(lastPart)
	}

	tokens := strings.Split(normalized, " ")
	if len(tokens) >= 2 {
		return tokens[len(tokens)-1], strings.Join(tokens[:len(tokens)-1], " ")
	}
	return normalized, ""
}
