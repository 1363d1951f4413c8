package pkg

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// AddressFromPubKey renders a serialized secp256k1 public key as a mainnet
// pay-to-pubkey-hash address.
func AddressFromPubKey(pubKey []byte) (string, error) {
	addr, err := btcutil.NewAddressPubKey(pubKey, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}
	return addr.AddressPubKeyHash().EncodeAddress(), nil
}
