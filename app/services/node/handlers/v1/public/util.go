package public

import (
	"context"
	"net/http"

	"github.com/avisen/ledger/business/web/errs"
	"github.com/avisen/ledger/foundation/blockchain/signature"
	"github.com/avisen/ledger/foundation/web"
)

// Hash returns the digest the ledger uses for the provided content.
func (h Handlers) Hash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var content contentToHash
	if err := web.Decode(r, &content); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, hashedContent{Hash: signature.Hash(content.Content)}, http.StatusOK)
}

// KeyPair generates a new publisher key pair.
func (h Handlers) KeyPair(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	privateKey, err := signature.GenerateKey()
	if err != nil {
		return err
	}

	kp := keyPair{
		PrivateKey: signature.PrivateKeyString(privateKey),
		PublicKey:  signature.PublicKeyString(privateKey.PublicKey),
	}

	return web.Respond(ctx, w, kp, http.StatusCreated)
}

// Sign signs the data with the provided private key.
func (h Handlers) Sign(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var sp signingPayload
	if err := web.Decode(r, &sp); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	privateKey, err := signature.ToPrivateKey(sp.PrivateKey)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	sig, err := signature.Sign(privateKey, sp.Data)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, signed{Signature: sig}, http.StatusCreated)
}
