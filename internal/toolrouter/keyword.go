package toolrouter

import (
	"strings"

	"github.com/normanking/toolrouter/internal/catalog"
)

// keywordIndex holds each tool's keywords lowercased once at construction.
// Surrounding spaces are kept so a padded keyword like " go " only matches
// the whole word; blank keywords are dropped.
type keywordIndex struct {
	names    []string
	keywords [][]string
}

func newKeywordIndex(tools []catalog.Tool) keywordIndex {
	idx := keywordIndex{
		names:    make([]string, len(tools)),
		keywords: make([][]string, len(tools)),
	}
	for i, t := range tools {
		idx.names[i] = t.Name
		for _, kw := range t.Keywords {
			if strings.TrimSpace(kw) == "" {
				continue
			}
			idx.keywords[i] = append(idx.keywords[i], strings.ToLower(kw))
		}
	}
	return idx
}

// match returns a score for every tool with a keyword contained in query,
// in catalog order. Only the first matching keyword of each tool is
// recorded.
func (idx keywordIndex) match(query string) []ToolScore {
	query = strings.ToLower(query)

	var matches []ToolScore
	for i, keywords := range idx.keywords {
		for _, kw := range keywords {
			if strings.Contains(query, kw) {
				matches = append(matches, ToolScore{
					ToolName:       idx.names[i],
					Score:          1.0,
					MatchedKeyword: kw,
				})
				break
			}
		}
	}
	return matches
}
