package client

import (
	"fmt"
	"sort"
	"strings"
)

// languageIDs maps lower-cased language names to upstream judge
// language identifiers.
var languageIDs = map[string]int{
	"javascript": 63,
	"python":     71,
	"java":       62,
	"cpp":        54,
	"c":          50,
	"go":         60,
	"csharp":     51,
	"ruby":       72,
	"php":        68,
	"rust":       73,
	"swift":      83,
	"kotlin":     78,
	"scala":      81,
	"typescript": 74,
	"r":          80,
	"perl":       85,
	"haskell":    61,
	"lua":        64,
	"bash":       46,
}

// SupportedLanguages returns the supported language names, sorted.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveLanguage maps a human-readable language name to the upstream
// numeric identifier. Resolution happens before any network call.
func ResolveLanguage(language string) (int, error) {
	id, ok := languageIDs[strings.ToLower(language)]
	if !ok {
		return 0, fmt.Errorf("Unsupported language: %s. Supported languages: %s",
			language, strings.Join(SupportedLanguages(), ", "))
	}
	return id, nil
}
