package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"

	"github.com/subramanyaSgb/finvault/internal/common"
)

// RecordVersion is the format version written by Seal. Open accepts any
// version this build knows how to decrypt; currently that is version 1 only.
const RecordVersion = 1

const gcmTagSize = 16

// EncryptedRecord is the self-describing ciphertext unit used both for vault
// rows and for encrypted backup artifacts. Salt and KDFParams are only set
// on password-derived records (backups); vault rows use the profile's stored
// salt instead.
type EncryptedRecord struct {
	Version    int     `json:"version"`
	Salt       []byte  `json:"salt,omitempty"`
	KDFParams  *Params `json:"kdf_params,omitempty"`
	Nonce      []byte  `json:"nonce"`
	Ciphertext []byte  `json:"ciphertext"`
	Tag        []byte  `json:"tag"`
}

// Seal encrypts plaintext under key with AES-256-GCM and a fresh random
// nonce. The GCM tag is carried in its own field so the on-disk format is
// explicit about what is being authenticated.
func Seal(plaintext, key []byte) (*EncryptedRecord, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	split := len(sealed) - gcmTagSize
	return &EncryptedRecord{
		Version:    RecordVersion,
		Nonce:      nonce,
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
	}, nil
}

// Open verifies and decrypts a record. It fails closed: an unknown version
// returns ErrUnsupportedVersion without touching the ciphertext, and any
// authentication failure returns ErrDecryptionFailed. Wrong key, wrong
// password and tampering are indistinguishable by contract.
func Open(rec *EncryptedRecord, key []byte) ([]byte, error) {
	if rec.Version != RecordVersion {
		return nil, common.ErrUnsupportedVersion
	}
	if len(rec.Tag) != gcmTagSize {
		return nil, common.ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(rec.Nonce) != aesgcm.NonceSize() {
		return nil, common.ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(rec.Ciphertext)+gcmTagSize)
	sealed = append(sealed, rec.Ciphertext...)
	sealed = append(sealed, rec.Tag...)

	plaintext, err := aesgcm.Open(nil, rec.Nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

// SealJSON serializes v to JSON and seals the result.
func SealJSON(v any, key []byte) (*EncryptedRecord, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Seal(plaintext, key)
}

// OpenJSON opens a record and unmarshals the plaintext into v.
func OpenJSON(rec *EncryptedRecord, key []byte, v any) error {
	plaintext, err := Open(rec, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
