// Package classify turns a query string into an operation descriptor by
// matching it against the small fixed grammar of in-database ML scoring
// statements. It is not a SQL parser: anything outside the grammar is
// reported as unsupported.
package classify

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor"
)

type clause int

const (
	clauseNone clause = iota
	clauseSelect
	clauseFrom
	clauseWhere
	clauseGroupBy
	clauseOrderBy
	clauseAs
)

var clauseWords = map[string]clause{
	"SELECT":   clauseSelect,
	"FROM":     clauseFrom,
	"WHERE":    clauseWhere,
	"GROUP_BY": clauseGroupBy,
	"ORDER_BY": clauseOrderBy,
	"AS":       clauseAs,
}

// mlFunctions maps the fully-qualified scoring function names to their kind.
var mlFunctions = map[string]advisor.Kind{
	"madlib.linregr_predict":      advisor.LinearRegression,
	"madlib.logregr_predict_prob": advisor.LogisticRegression,
	"madlib.svm_predict":          advisor.SVM,
	"madlib.mlp_predict":          advisor.MLP,
	"madlib.tree_predict":         advisor.DecisionTree,
	"madlib.forest_predict":       advisor.Forest,
}

const (
	treeTrainFunction = "madlib.tree_train"
	arrayKeyword      = "ARRAY"
	coefPlaceholder   = "coef"
)

// DefaultMaxTransitions bounds the scan when no configuration is given.
const DefaultMaxTransitions = 20

// Classifier recognizes ML scoring statements.
type Classifier struct {
	MaxTransitions int
}

// New returns a Classifier configured from cfg.
func New(cfg advisor.ClassifierConfig) *Classifier {
	return &Classifier{MaxTransitions: cfg.MaxTransitions}
}

// Classify tokenizes query and classifies the tokens.
// It never fails: unrecognized shapes yield Kind Unsupported.
func (c *Classifier) Classify(query string) advisor.Descriptor {
	return c.ClassifyTokens(Tokenize(query))
}

// ClassifyTokens classifies an already tokenized query.
func (c *Classifier) ClassifyTokens(tokens []string) advisor.Descriptor {
	maxSteps := c.MaxTransitions
	if maxSteps <= 0 {
		maxSteps = DefaultMaxTransitions
	}
	ok := !hasOrdering(tokens)
	s := &scanner{tokens: tokens}
	if ok {
		ok = s.run(maxSteps)
	}

	trainTable := trainTarget(tokens)
	if !ok || s.desc.Kind == advisor.Unsupported {
		logrus.Debugf("[classify] unsupported query (%d tokens)", len(tokens))
		return advisor.Descriptor{Kind: advisor.Unsupported, TrainTable: trainTable}
	}
	s.desc.TrainTable = trainTable
	logrus.Debugf("[classify] %s model=%q data=%q filter=%v aggregate=%v",
		s.desc.Kind, s.desc.ModelTable, s.desc.DataTable, s.desc.Filter != nil, s.desc.Aggregate != nil)
	return s.desc
}

// hasOrdering reports a GROUP_BY or ORDER_BY anywhere in the query,
// including past the scan limit.
func hasOrdering(tokens []string) bool {
	for _, tok := range tokens {
		if cl := clauseWords[tok]; cl == clauseGroupBy || cl == clauseOrderBy {
			return true
		}
	}
	return false
}

// trainTarget returns the table a madlib.tree_train call writes its model to.
func trainTarget(tokens []string) string {
	for _, tok := range tokens {
		if tok == treeTrainFunction && len(tokens) > 3 {
			return tokens[3]
		}
	}
	return ""
}

// scanner walks the token list left to right with a clause cursor.
type scanner struct {
	tokens []string
	pos    int
	desc   advisor.Descriptor
}

func (s *scanner) at(i int) (string, bool) {
	if i < 0 || i >= len(s.tokens) {
		return "", false
	}
	return s.tokens[i], true
}

// run returns false as soon as the query is known to be outside the grammar.
// The step count is checked after each step, so at most maxSteps+1 steps run.
func (s *scanner) run(maxSteps int) bool {
	cursor := clauseNone
	for step := 0; s.pos < len(s.tokens); step++ {
		if step > maxSteps {
			logrus.Debugf("[classify] scan stopped after %d steps", step)
			break
		}
		tok := s.tokens[s.pos]
		cl, entered := clauseWords[tok]
		if entered {
			cursor = cl
		} else if cursor == clauseNone {
			return false
		}

		switch cursor {
		case clauseSelect:
			if !entered {
				// trailing positional arguments
				s.pos++
				continue
			}
			if !s.selectClause() {
				return false
			}
		case clauseFrom:
			if entered && s.isRegression() && s.desc.ModelTable == "" {
				model, ok1 := s.at(s.pos + 1)
				data, ok2 := s.at(s.pos + 2)
				if !ok1 || !ok2 {
					return false
				}
				s.desc.ModelTable, s.desc.DataTable = model, data
				s.pos += 3
			} else {
				s.pos++
			}
		case clauseWhere:
			if !entered || !s.whereClause() {
				return false
			}
		case clauseGroupBy, clauseOrderBy:
			return false
		default:
			s.pos++
		}
	}
	return true
}

func (s *scanner) isRegression() bool {
	return s.desc.Kind == advisor.LinearRegression || s.desc.Kind == advisor.LogisticRegression
}

// selectClause handles SELECT followed by a scoring function or an aggregate.
func (s *scanner) selectClause() bool {
	at := s.pos
	next, ok := s.at(at + 1)
	if !ok {
		return false
	}
	if kind, isML := mlFunctions[next]; isML {
		if s.desc.Kind != advisor.Unsupported {
			return false
		}
		s.desc.Kind = kind
		switch kind {
		case advisor.LinearRegression, advisor.LogisticRegression:
			s.pos = at + 2
			model, ok := s.columnList()
			if !ok {
				return false
			}
			data, ok := s.columnList()
			if !ok {
				return false
			}
			s.desc.ModelColumns, s.desc.DataColumns = model, data
		case advisor.SVM, advisor.MLP:
			args, ok := s.positional(at+2, 4)
			if !ok {
				return false
			}
			s.desc.ModelTable, s.desc.DataTable = args[0], args[1]
			s.desc.IDColumn, s.desc.OutputTable = args[2], args[3]
			s.pos = at + 6
		default:
			args, ok := s.positional(at+2, 3)
			if !ok {
				return false
			}
			s.desc.ModelTable, s.desc.DataTable, s.desc.OutputTable = args[0], args[1], args[2]
			s.pos = at + 5
		}
		return true
	}

	op, isAggr := advisor.ParseAggregateOp(next)
	if !isAggr {
		return false
	}
	operand, ok := s.at(at + 2)
	if !ok || s.desc.Aggregate != nil {
		return false
	}
	table, column, found := strings.Cut(operand, ".")
	if !found {
		table, column = "", operand
	}
	s.desc.Aggregate = &advisor.Aggregate{Op: op, Table: table, Column: column}
	s.pos = at + 3
	return true
}

// positional returns n argument tokens starting at i. Clause words are not
// valid arguments.
func (s *scanner) positional(i, n int) ([]string, bool) {
	if i+n > len(s.tokens) {
		return nil, false
	}
	args := s.tokens[i : i+n]
	for _, a := range args {
		if _, isClause := clauseWords[a]; isClause {
			return nil, false
		}
	}
	return args, true
}

// columnList reads an ARRAY literal (up to the next FROM or ARRAY) or the
// single coef placeholder.
func (s *scanner) columnList() ([]string, bool) {
	tok, ok := s.at(s.pos)
	if !ok {
		return nil, false
	}
	switch tok {
	case coefPlaceholder:
		s.pos++
		return []string{coefPlaceholder}, true
	case arrayKeyword:
		start := s.pos + 1
		for end := start; end < len(s.tokens); end++ {
			if t := s.tokens[end]; t == "FROM" || t == arrayKeyword {
				s.pos = end
				return append([]string(nil), s.tokens[start:end]...), true
			}
		}
	}
	return nil, false
}

// whereClause reads a single `table.column op literal` predicate.
func (s *scanner) whereClause() bool {
	if s.desc.Filter != nil || s.pos+3 >= len(s.tokens) {
		return false
	}
	table, column, found := strings.Cut(s.tokens[s.pos+1], ".")
	if !found || table == "" || column == "" {
		return false
	}
	op, ok := advisor.ParseComparator(s.tokens[s.pos+2])
	if !ok {
		return false
	}
	value, err := strconv.ParseFloat(s.tokens[s.pos+3], 64)
	if err != nil {
		return false
	}
	s.desc.Filter = &advisor.Filter{Table: table, Column: column, Op: op, Value: value}
	s.pos += 4
	return true
}
