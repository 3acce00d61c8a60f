// Package model defines the node, edge, and record shapes shared by every
// stage of the taint-flow pipeline: AST, CFG, and DFG nodes, class records,
// and taint flows.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SharedID is the stable fingerprint of a parse-tree region: the production
// kind of the grammar rule that produced it plus the source byte range it
// spans. It is the sole cross-graph correspondence mechanism — an AST node,
// a CFG node, and a DFG node built from the same parse-tree region carry the
// identical SharedID, and none of the three graphs holds a pointer into
// either of the other two.
type SharedID string

// NewSharedID derives a SharedID from the parse-tree production kind, the
// file it came from, and the byte range it spans. Two independent builds
// over the same source region always produce the same id.
func NewSharedID(productionKind, file string, startByte, endByte uint32) SharedID {
	input := fmt.Sprintf("%s|%s|%d|%d", productionKind, file, startByte, endByte)
	sum := sha256.Sum256([]byte(input))
	return SharedID(hex.EncodeToString(sum[:]))
}
