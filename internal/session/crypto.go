package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Encrypted record layout: salt(32) then iv(16) then authTag(16) then
// ciphertext. The key is derived per record from the secret and the
// record's own random salt, so no key material is reused across files.
const (
	saltLength    = 32
	ivLength      = 16
	authTagLength = 16
	keyLength     = 32
	kdfIterations = 100000
)

var errCiphertextTooShort = errors.New("ciphertext too short")

func deriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, kdfIterations, keyLength, sha256.New)
}

func encrypt(secret string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, err
	}

	// Seal appends the tag after the ciphertext; the record format puts
	// it before, so split and reorder.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - authTagLength
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	out := make([]byte, 0, saltLength+ivLength+authTagLength+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

func decrypt(secret string, data []byte) ([]byte, error) {
	if len(data) < saltLength+ivLength+authTagLength {
		return nil, errCiphertextTooShort
	}
	salt := data[:saltLength]
	iv := data[saltLength : saltLength+ivLength]
	tag := data[saltLength+ivLength : saltLength+ivLength+authTagLength]
	ciphertext := data[saltLength+ivLength+authTagLength:]

	block, err := aes.NewCipher(deriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+authTagLength)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt session record: %w", err)
	}
	return plaintext, nil
}
