package store

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces a fresh unique identifier per call.
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// SequenceGenerator yields "<prefix>1", "<prefix>2", ... and is meant for
// tests that need predictable ids.
type SequenceGenerator struct {
	Prefix string
	next   atomic.Uint64
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s%d", g.Prefix, g.next.Add(1))
}
