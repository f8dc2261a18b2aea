package engine

import "strings"

// match reports whether any entry of values matches resp. A value of
// two or more characters ending in '*' matches any response carrying
// the characters before the '*' as a prefix; every other value must
// equal resp exactly. Matching is case-sensitive.
func match(resp string, values []string) bool {
	for _, v := range values {
		if len(v) > 1 && strings.HasSuffix(v, "*") {
			if strings.HasPrefix(resp, v[:len(v)-1]) {
				return true
			}
		} else if resp == v {
			return true
		}
	}
	return false
}
