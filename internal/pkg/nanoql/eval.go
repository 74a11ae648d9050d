package nanoql

import "strings"

// Record is the view of a log entry the matcher needs.
type Record interface {
	GetLevel() string
	GetMessage() string
	GetThreadID() string
	GetDate() string
	GetTime() string
}

// Match reports whether row satisfies node. A nil node matches everything.
func Match(node Node, row Record) bool {
	if node == nil {
		return true
	}

	switch n := node.(type) {
	case BinaryExpr:
		switch n.Op {
		case "AND":
			return Match(n.Left, row) && Match(n.Right, row)
		case "OR":
			return Match(n.Left, row) || Match(n.Right, row)
		}
		return false
	case MatchExpr:
		return evalMatch(n, row)
	case NotExpr:
		return !Match(n.Expr, row)
	default:
		return false
	}
}

func evalMatch(expr MatchExpr, row Record) bool {
	if expr.Key == "" {
		return matchFullText(expr.Value, row)
	}

	value, ok := fieldValue(expr.Key, row)
	if !ok {
		return false
	}

	switch expr.Op {
	case OpNotEqual:
		return !strings.EqualFold(value, expr.Value)
	case OpContains:
		return containsFold(value, expr.Value)
	default:
		return strings.EqualFold(value, expr.Value)
	}
}

func fieldValue(key string, row Record) (string, bool) {
	switch strings.ToLower(key) {
	case "level", "lvl", "log_level":
		return row.GetLevel(), true
	case "message", "msg":
		return row.GetMessage(), true
	case "thread", "thread_id", "tid":
		return row.GetThreadID(), true
	case "date":
		return row.GetDate(), true
	case "time":
		return row.GetTime(), true
	default:
		return "", false
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchFullText(query string, row Record) bool {
	for _, f := range []string{row.GetMessage(), row.GetLevel(), row.GetThreadID()} {
		if containsFold(f, query) {
			return true
		}
	}
	return false
}
