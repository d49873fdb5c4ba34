package strategy

import "strings"

// lookup resolves a field path against a parsed request body. The path uses
// bracket syntax for nesting, so "user[name]" finds body["user"]["name"].
// Anything other than a string at the end of the path resolves to "".
func lookup(body map[string]any, field string) string {
	keys := parseFieldPath(field)
	if len(keys) == 0 {
		return ""
	}

	current := body
	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			s, _ := value.(string)
			return s
		}
		current, ok = value.(map[string]any)
		if !ok {
			return ""
		}
	}
	return ""
}

// parseFieldPath splits "a[b][c]" into ["a", "b", "c"]. A malformed path
// (unbalanced brackets, empty segments) yields nil.
func parseFieldPath(field string) []string {
	open := strings.IndexByte(field, '[')
	if open < 0 {
		if field == "" {
			return nil
		}
		return []string{field}
	}

	head := field[:open]
	if head == "" {
		return nil
	}
	keys := []string{head}

	rest := field[open:]
	for rest != "" {
		if rest[0] != '[' {
			return nil
		}
		closing := strings.IndexByte(rest, ']')
		if closing < 0 {
			return nil
		}
		key := rest[1:closing]
		if key == "" {
			return nil
		}
		keys = append(keys, key)
		rest = rest[closing+1:]
	}
	return keys
}
