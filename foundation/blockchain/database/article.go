package database

import (
	"crypto/ecdsa"

	"github.com/avisen/ledger/foundation/blockchain/signature"
)

// Article represents a unit of content submitted by a publisher. Only the
// digest of the content is carried on the chain.
type Article struct {
	AuthorKey   string `json:"authorKey"`   // Public key of the publisher who wrote the article.
	Byline      string `json:"byline"`      // Who the article is attributed to.
	Headline    string `json:"headline"`    // Title of the article.
	Section     string `json:"section"`     // News section, may differ per publisher.
	ContentHash string `json:"contentHash"` // Digest of the article content.
	Date        string `json:"date"`        // Publication date in YYYY-MM-DD.
	Signature   string `json:"signature"`   // Author's signature over the signing payload.
	ID          string `json:"id"`          // Derived identifier, see ArticleID.
}

// NewArticle constructs an article and derives its identifier. The identifier
// and signature are never recomputed after this point.
func NewArticle(authorKey, byline, headline, section, contentHash, date, sig string) Article {
	return Article{
		AuthorKey:   authorKey,
		Byline:      byline,
		Headline:    headline,
		Section:     section,
		ContentHash: contentHash,
		Date:        date,
		Signature:   sig,
		ID:          ArticleID(authorKey, byline, headline, section, contentHash, date),
	}
}

// SignArticle builds the article with a signature produced by the specified
// author key.
func SignArticle(privateKey *ecdsa.PrivateKey, byline, headline, section, contentHash, date string) (Article, error) {
	sig, err := signature.Sign(privateKey, ArticleSigningPayload(byline, headline, section, contentHash, date))
	if err != nil {
		return Article{}, err
	}

	authorKey := signature.PublicKeyString(privateKey.PublicKey)

	return NewArticle(authorKey, byline, headline, section, contentHash, date, sig), nil
}

// ArticleID returns the identifier for an article with the specified fields.
func ArticleID(authorKey, byline, headline, section, contentHash, date string) string {
	return signature.Hash(authorKey + byline + headline + section + contentHash + date)
}

// ArticleSigningPayload returns the string an author signs for an article.
func ArticleSigningPayload(byline, headline, section, contentHash, date string) string {
	return byline + headline + section + contentHash + date
}

// SigningPayload returns the string the author signed for this article.
func (a Article) SigningPayload() string {
	return ArticleSigningPayload(a.Byline, a.Headline, a.Section, a.ContentHash, a.Date)
}

// VerifySignature reports whether the article signature was produced by the
// author key.
func (a Article) VerifySignature() bool {
	return signature.Verify(a.AuthorKey, a.SigningPayload(), a.Signature)
}

// =============================================================================

// Publisher represents a key authorized to submit articles and to admit
// other publishers.
type Publisher struct {
	PublicKey string `json:"publicKey"`
}
