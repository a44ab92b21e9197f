package stress

import (
	_ "embed"
	"strings"
)

//go:embed domains.txt
var domainList string

// Candidates returns the built-in list of names stress runs sample from.
func Candidates() []string {
	var names []string
	for _, line := range strings.Split(domainList, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}
