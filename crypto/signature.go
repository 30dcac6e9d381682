package crypto

import (
	"errors"
	"fmt"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/corevm/corevm/core/types"
	"github.com/corevm/corevm/rlp"
)

var (
	ErrInvalidSignature = errors.New("crypto: invalid signature values")
	ErrRecoveryFailed   = errors.New("crypto: public key recovery failed")
)

// Ecrecover recovers the uncompressed public key that produced the given
// 65-byte [R || S || V] signature over hash. V must be 0 or 1.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := gethcrypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	return pub, nil
}

// RecoverAddress recovers the signer address from a 32-byte hash and a
// 65-byte [R || S || V] signature.
func RecoverAddress(hash, sig []byte) (types.Address, error) {
	pub, err := Ecrecover(hash, sig)
	if err != nil {
		return types.Address{}, err
	}
	// The address is the low 20 bytes of keccak256 of the 64-byte pubkey.
	return types.BytesToAddress(Keccak256(pub[1:])[12:]), nil
}

// SenderOf recovers the transaction sender from its signature. The result
// is cached on the transaction.
func SenderOf(tx *types.Transaction) (types.Address, error) {
	if cached := tx.Sender(); cached != nil {
		return *cached, nil
	}
	_, r, s := tx.RawSignatureValues()
	if r == nil || s == nil {
		return types.Address{}, ErrInvalidSignature
	}
	if !gethcrypto.ValidateSignatureValues(tx.RecoveryID(), r.ToBig(), s.ToBig(), true) {
		return types.Address{}, ErrInvalidSignature
	}
	sig := packSignature(r, s, tx.RecoveryID())
	hash := Keccak256(tx.SigningPayload())
	addr, err := RecoverAddress(hash, sig)
	if err != nil {
		return types.Address{}, err
	}
	tx.SetSender(addr)
	return addr, nil
}

// RecoverAuthority recovers the signing EOA of an EIP-7702 authorization:
// the signer of keccak256(0x05 || rlp([chain_id, address, nonce])).
func RecoverAuthority(auth *types.Authorization) (types.Address, error) {
	if auth.R == nil || auth.S == nil || auth.YParity > 1 {
		return types.Address{}, ErrInvalidSignature
	}
	if !gethcrypto.ValidateSignatureValues(auth.YParity, auth.R.ToBig(), auth.S.ToBig(), true) {
		return types.Address{}, ErrInvalidSignature
	}
	payload := types.AppendAuthorizationFields(nil, auth)
	hash := Keccak256([]byte{types.SetCodeAuthorizationMagic}, rlp.WrapList(payload))
	return RecoverAddress(hash, packSignature(auth.R, auth.S, auth.YParity))
}

// packSignature assembles the 65-byte [R || S || V] form expected by
// secp256k1 recovery.
func packSignature(r, s *uint256.Int, v byte) []byte {
	sig := make([]byte, 65)
	rb := r.Bytes32()
	sb := s.Bytes32()
	copy(sig[:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = v
	return sig
}
