package signature_test

import (
	"testing"

	"github.com/avisen/ledger/foundation/blockchain/signature"
)

const (
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherHexKey = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	pk, err := signature.ToPrivateKey(pkHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode a private key: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to decode a private key.", success)

	pub := signature.PublicKeyString(pk.PublicKey)
	payload := "Bill" + "Kennedy" + "Go"

	sig, err := signature.Sign(pk, payload)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign data: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to sign data.", success)

	if !signature.Verify(pub, payload, sig) {
		t.Fatalf("\t%s\tShould be able to verify the signature.", failed)
	}
	t.Logf("\t%s\tShould be able to verify the signature.", success)

	if signature.Verify(pub, payload+"!", sig) {
		t.Fatalf("\t%s\tShould reject a signature over a tampered payload.", failed)
	}
	t.Logf("\t%s\tShould reject a signature over a tampered payload.", success)

	other, err := signature.ToPrivateKey(otherHexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode the other private key: %s", failed, err)
	}

	if signature.Verify(signature.PublicKeyString(other.PublicKey), payload, sig) {
		t.Fatalf("\t%s\tShould reject a signature checked against another key.", failed)
	}
	t.Logf("\t%s\tShould reject a signature checked against another key.", success)
}

func Test_VerifyMalformed(t *testing.T) {
	pk, err := signature.ToPrivateKey(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to decode a private key: %s", err)
	}
	pub := signature.PublicKeyString(pk.PublicKey)

	sig, err := signature.Sign(pk, "data")
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	tt := []struct {
		name string
		pub  string
		sig  string
	}{
		{name: "empty-key", pub: "", sig: sig},
		{name: "garbage-key", pub: "0xzz", sig: sig},
		{name: "short-key", pub: "0x0102", sig: sig},
		{name: "empty-sig", pub: pub, sig: ""},
		{name: "short-sig", pub: pub, sig: sig[:20]},
		{name: "no-prefix-sig", pub: pub, sig: sig[2:]},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if signature.Verify(tst.pub, "data", tst.sig) {
				t.Fatalf("\t%s\tTest %s:\tShould reject malformed input.", failed, tst.name)
			}
			t.Logf("\t%s\tTest %s:\tShould reject malformed input.", success, tst.name)
		}

		t.Run(tst.name, f)
	}
}

func Test_Hash(t *testing.T) {
	const hash = "e51783b4d7688ffba51a35d8c9f04041606c0d6fb00bb306fba0f2dcb7e1f890"

	h := signature.Hash("Bill")
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the right hash: %s", h[:6])
	}

	h = signature.Hash("Bill")
	if h != hash {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", hash)
		t.Fatalf("Should get back the same hash twice.")
	}
}

func Test_KeyEncoding(t *testing.T) {
	pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	decoded, err := signature.ToPrivateKey(signature.PrivateKeyString(pk))
	if err != nil {
		t.Fatalf("Should be able to decode the private key: %s", err)
	}

	if !decoded.Equal(pk) {
		t.Fatalf("Should get back the same private key.")
	}

	pub, err := signature.ToPublicKey(signature.PublicKeyString(pk.PublicKey))
	if err != nil {
		t.Fatalf("Should be able to decode the public key: %s", err)
	}

	if !pub.Equal(&pk.PublicKey) {
		t.Fatalf("Should get back the same public key.")
	}
}
