package engine

import (
	"fmt"

	"github.com/coffersTech/logdash/internal/model"
	"github.com/coffersTech/logdash/internal/pkg/nanoql"
)

// CompileQuery parses an advanced query. An empty query compiles to nil,
// which matches every record.
func CompileQuery(query string) (nanoql.Node, error) {
	node, err := nanoql.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid query syntax: %w", err)
	}
	return node, nil
}

func matchQuery(node nanoql.Node, row *model.LogRecord) bool {
	return nanoql.Match(node, row)
}
