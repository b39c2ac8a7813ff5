// Package idgen issues short public order references: a snowflake id encoded
// with hashids so references are unique, unguessable in sequence and easy to
// read out over the phone.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/speps/go-hashids/v2"
)

const (
	referenceAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referenceMinLength = 10
)

type Generator struct {
	node *snowflake.Node
	hash *hashids.HashID
}

func NewGenerator(nodeID int64, salt string) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}

	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = referenceMinLength
	hd.Alphabet = referenceAlphabet
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("hashids: %w", err)
	}
	return &Generator{node: node, hash: h}, nil
}

// Reference returns a new order reference.
func (g *Generator) Reference() (string, error) {
	return g.hash.EncodeInt64([]int64{g.node.Generate().Int64()})
}

// Decode returns the snowflake id behind a reference.
func (g *Generator) Decode(reference string) (snowflake.ID, error) {
	ids, err := g.hash.DecodeInt64WithError(reference)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("reference %q: expected one id, got %d", reference, len(ids))
	}
	return snowflake.ID(ids[0]), nil
}
