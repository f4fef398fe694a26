package ledger

import (
	"crypto/ed25519"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"algo-transfers/internal/errors"
)

const mnemonicWordCount = 25

// MnemonicSigner signs with the ed25519 key recovered from a 25-word mnemonic.
type MnemonicSigner struct {
	sk      ed25519.PrivateKey
	address string
}

// SanitizeMnemonic collapses surrounding and repeated whitespace.
func SanitizeMnemonic(m string) string {
	return strings.Join(strings.Fields(m), " ")
}

// NewMnemonicSigner recovers the account behind phrase.
func NewMnemonicSigner(phrase string) (*MnemonicSigner, error) {
	phrase = SanitizeMnemonic(phrase)
	if phrase == "" {
		return nil, errors.ErrMissingCredential
	}
	if n := len(strings.Split(phrase, " ")); n != mnemonicWordCount {
		return nil, errors.NewAppErrorf(errors.InvalidCredential, "mnemonic must contain exactly %d words, got %d", mnemonicWordCount, n)
	}

	sk, err := mnemonic.ToPrivateKey(phrase)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidCredential,
			"invalid mnemonic phrase: all 25 words must belong to the Algorand word list in the correct order", err)
	}
	return NewKeySigner(sk)
}

// NewKeySigner wraps an existing private key.
func NewKeySigner(sk ed25519.PrivateKey) (*MnemonicSigner, error) {
	account, err := crypto.AccountFromPrivateKey(sk)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidCredential, "invalid private key", err)
	}
	return &MnemonicSigner{sk: sk, address: account.Address.String()}, nil
}

func (s *MnemonicSigner) Address() string {
	return s.address
}

func (s *MnemonicSigner) Sign(tx types.Transaction) (string, []byte, error) {
	id, signed, err := crypto.SignTransaction(s.sk, tx)
	if err != nil {
		return "", nil, errors.Wrap(errors.InvalidCredential, "failed to sign transaction", err)
	}
	return id, signed, nil
}
