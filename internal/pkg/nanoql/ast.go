package nanoql

// Node is implemented by all AST nodes.
type Node interface {
	node()
}

// Operators understood by MatchExpr.
const (
	OpEqual    = "="
	OpNotEqual = "!="
	OpContains = "~"
)

// BinaryExpr joins two expressions with AND or OR.
type BinaryExpr struct {
	Op    string
	Left  Node
	Right Node
}

func (BinaryExpr) node() {}

// MatchExpr compares one field with a value.
// An empty Key searches message, level and thread together.
type MatchExpr struct {
	Key   string
	Value string
	Op    string
}

func (MatchExpr) node() {}

// NotExpr negates its inner expression.
type NotExpr struct {
	Expr Node
}

func (NotExpr) node() {}
