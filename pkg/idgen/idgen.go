// Package idgen produces human-facing document numbers (receipts, invoices)
// that sort by creation time.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

type Generator struct {
	node *snowflake.Node
}

func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Receipt() string {
	return "RCP-" + g.node.Generate().String()
}

func (g *Generator) Invoice() string {
	return "INV-" + g.node.Generate().String()
}
