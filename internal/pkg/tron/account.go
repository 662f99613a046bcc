package tron

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/sha3"
)

// addressPrefix 主网地址版本字节
const addressPrefix byte = 0x41

// CreateDepositAccount 生成新的 secp256k1 密钥对和对应的 base58 地址
func (c *Client) CreateDepositAccount() (*DepositAccount, error) {
	return NewDepositAccount()
}

func NewDepositAccount() (*DepositAccount, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("generate key: %w", err)}
	}
	return &DepositAccount{
		Address:    AddressFromPublicKey(priv.PubKey()),
		PrivateKey: hex.EncodeToString(priv.Serialize()),
	}, nil
}

// AddressFromPublicKey base58check(0x41 || keccak256(X||Y)[12:])
func AddressFromPublicKey(pub *btcec.PublicKey) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(pub.SerializeUncompressed()[1:])
	sum := h.Sum(nil)
	return base58.CheckEncode(sum[12:], addressPrefix)
}

// AddressFromPrivateKey 由十六进制私钥推导地址
func AddressFromPrivateKey(privHex string) (string, error) {
	raw, err := hex.DecodeString(privHex)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("invalid private key")
	}
	_, pub := btcec.PrivKeyFromBytes(raw)
	return AddressFromPublicKey(pub), nil
}

// IsValidAddress 校验 base58check 格式和版本字节
func IsValidAddress(address string) bool {
	payload, ver, err := base58.CheckDecode(address)
	return err == nil && ver == addressPrefix && len(payload) == 20
}
