package classify

import "strings"

// delimiters separate tokens; quotes and brackets carry no meaning in the grammar.
const delimiters = " ,()[];'\n\t\r"

// Tokenize splits a query into words. Text after the first ';' is ignored
// and the two-word clauses GROUP BY and ORDER BY are folded into GROUP_BY
// and ORDER_BY.
func Tokenize(query string) []string {
	if i := strings.IndexByte(query, ';'); i >= 0 {
		query = query[:i]
	}
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return strings.ContainsRune(delimiters, r)
	})
	tokens := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if (f == "GROUP" || f == "ORDER") && i+1 < len(fields) && fields[i+1] == "BY" {
			tokens = append(tokens, f+"_BY")
			i++
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
