package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shelfdesk/lms-client/internal/logger"
)

// KeyFileName is created next to the local database when no key is configured
const KeyFileName = "encryption.key"

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidKeySize    = errors.New("invalid key size")
)

// EncryptionManager seals values stored on disk with AES-256-GCM
type EncryptionManager struct {
	aead   cipher.AEAD
	logger *logger.Logger
}

// NewEncryptionManager resolves the key and builds a manager.
// configured is either a base64 encoded 32 byte key or a passphrase; when it is
// empty the key is read from (or generated into) keyDir/encryption.key.
func NewEncryptionManager(configured, keyDir string, log *logger.Logger) (*EncryptionManager, error) {
	key, err := resolveKey(configured, keyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}
	return NewEncryptionManagerWithKey(key, log)
}

// NewEncryptionManagerWithKey creates an encryption manager with a specific key
func NewEncryptionManagerWithKey(key []byte, log *logger.Logger) (*EncryptionManager, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	if log == nil {
		log = logger.Get()
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &EncryptionManager{
		aead:   aead,
		logger: log.Component("crypto"),
	}, nil
}

// Encrypt returns base64(nonce || ciphertext); empty input stays empty
func (em *EncryptionManager) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, em.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		em.logger.Error("Failed to generate nonce", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := em.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt
func (em *EncryptionManager) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	nonceSize := em.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := em.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		em.logger.Warn("Failed to decrypt value", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return string(plaintext), nil
}

func resolveKey(configured, keyDir string) ([]byte, error) {
	if configured = strings.TrimSpace(configured); configured != "" {
		if key, err := base64.StdEncoding.DecodeString(configured); err == nil && len(key) == 32 {
			return key, nil
		}
		return DeriveKeyFromPassword(configured), nil
	}

	keyPath := filepath.Join(keyDir, KeyFileName)
	if data, err := os.ReadFile(keyPath); err == nil {
		key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode encryption key from file: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read encryption key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.MkdirAll(keyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyPath, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("failed to save encryption key: %w", err)
	}
	return key, nil
}

// DeriveKeyFromPassword derives an encryption key from a passphrase using SHA-256
func DeriveKeyFromPassword(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}
