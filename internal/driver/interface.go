package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// QueryRunner executes one Cypher statement and returns its records.
type QueryRunner interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
}

var _ QueryRunner = (*MemgraphDriver)(nil)
