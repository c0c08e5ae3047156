package private

import (
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/validate"
)

// node is the payload for adding a peer to the roster.
type node struct {
	Address string    `json:"address" validate:"required"`
	Type    peer.Role `json:"type" validate:"required,oneof=PUBLISHER REPLICA UTILITY"`
}

// Validate checks the data in the model is considered clean.
func (n node) Validate() error {
	return validate.Check(n)
}

// newPublisher is the payload for admitting a publisher. The signature is
// produced by the authority key over the public key.
type newPublisher struct {
	PublicKey string `json:"publicKey" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Validate checks the data in the model is considered clean.
func (np newPublisher) Validate() error {
	return validate.Check(np)
}
