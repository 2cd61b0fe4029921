package bridge

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// KeySize is the symmetric session key length.
const KeySize = 32

// Payload is an encrypted JSON-RPC message. HMAC covers cipher||iv.
type Payload struct {
	Data string `json:"data"`
	HMAC string `json:"hmac"`
	IV   string `json:"iv"`
}

// NewKey returns a random session key.
func NewKey() ([]byte, error) {
	return randomBytes(KeySize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, tethererr.Wrap(err, "reading random bytes")
	}
	return b, nil
}

// Encrypt seals plaintext with AES-256-CBC under key and signs it.
func Encrypt(key, plaintext []byte) (*Payload, error) {
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, tethererr.Wrap(ErrInvalidPayload, "cipher: %v", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	data := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(data, padded)

	return &Payload{
		Data: hex.EncodeToString(data),
		HMAC: hex.EncodeToString(sign(key, data, iv)),
		IV:   hex.EncodeToString(iv),
	}, nil
}

// Decrypt verifies and opens p with key.
func Decrypt(key []byte, p *Payload) ([]byte, error) {
	data, err := hex.DecodeString(p.Data)
	if err != nil {
		return nil, tethererr.Wrap(ErrInvalidPayload, "data: %v", err)
	}
	iv, err := hex.DecodeString(p.IV)
	if err != nil {
		return nil, tethererr.Wrap(ErrInvalidPayload, "iv: %v", err)
	}
	mac, err := hex.DecodeString(p.HMAC)
	if err != nil {
		return nil, tethererr.Wrap(ErrInvalidPayload, "hmac: %v", err)
	}
	if !hmac.Equal(mac, sign(key, data, iv)) {
		return nil, tethererr.Wrap(ErrInvalidPayload, "hmac mismatch")
	}
	if len(iv) != aes.BlockSize || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, tethererr.Wrap(ErrInvalidPayload, "bad block layout")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, tethererr.Wrap(ErrInvalidPayload, "cipher: %v", err)
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func sign(key, data, iv []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	h.Write(iv)
	return h.Sum(nil)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 {
		return nil, tethererr.Wrap(ErrInvalidPayload, "empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, tethererr.Wrap(ErrInvalidPayload, "bad padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, tethererr.Wrap(ErrInvalidPayload, "bad padding")
		}
	}
	return b[:len(b)-n], nil
}
