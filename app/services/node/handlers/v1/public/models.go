package public

import (
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/validate"
)

// status is the self description of the node with its sync progress.
type status struct {
	peer.Info
	Phase     string `json:"phase"`
	ChainSize uint64 `json:"chainSize"`
	Tip       string `json:"tip,omitempty"`
}

// newArticle is the payload for submitting an article. Every field the
// author signed must be present. The id is derived again on receipt.
type newArticle struct {
	AuthorKey   string `json:"authorKey" validate:"required"`
	Byline      string `json:"byline" validate:"required"`
	Headline    string `json:"headline" validate:"required"`
	Section     string `json:"section" validate:"required"`
	ContentHash string `json:"contentHash" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Signature   string `json:"signature" validate:"required"`
	ID          string `json:"id,omitempty"`
}

// Validate checks the data in the model is considered clean.
func (na newArticle) Validate() error {
	return validate.Check(na)
}

func (na newArticle) toArticle() database.Article {
	return database.NewArticle(na.AuthorKey, na.Byline, na.Headline, na.Section, na.ContentHash, na.Date, na.Signature)
}

// =============================================================================

type contentToHash struct {
	Content string `json:"content"`
}

type hashedContent struct {
	Hash string `json:"hash"`
}

type keyPair struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

type signingPayload struct {
	PrivateKey string `json:"privateKey" validate:"required"`
	Data       string `json:"data"`
}

// Validate checks the data in the model is considered clean.
func (sp signingPayload) Validate() error {
	return validate.Check(sp)
}

type signed struct {
	Signature string `json:"signature"`
}
