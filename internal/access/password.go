package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters.
const (
	argonTime    = 3         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1         // parallelism
	argonKeyLen  = 32        // output hash length
	argonSaltLen = 16        // salt length
)

// HashPassword hashes a plaintext password with Argon2id and returns it in
// PHC string format: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword checks a plaintext password against a PHC hash string.
func VerifyPassword(password, encodedHash string) (bool, error) {
	phc, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), phc.salt, phc.time, phc.memory, phc.threads, uint32(len(phc.hash))) //nolint:gosec // G115: hash length fits uint32

	return subtle.ConstantTimeCompare(phc.hash, candidate) == 1, nil
}

type phcHash struct {
	salt    []byte
	hash    []byte
	time    uint32
	memory  uint32
	threads uint8
}

func decodePHC(encoded string) (phcHash, error) {
	var out phcHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return out, fmt.Errorf("invalid PHC hash format")
	}
	if parts[1] != "argon2id" {
		return out, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return out, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return out, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.memory, &out.time, &out.threads); err != nil {
		return out, fmt.Errorf("parsing parameters: %w", err)
	}

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return out, fmt.Errorf("decoding salt: %w", err)
	}
	if out.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return out, fmt.Errorf("decoding hash: %w", err)
	}
	return out, nil
}

// PasswordDecider grants a level when the credential matches the password
// hash configured for that level. A matching password for a higher level
// also grants any lower one.
type PasswordDecider struct {
	hashes map[Userlevel]string
}

// NewPasswordDecider builds a decider from PHC hashes keyed by level.
// Every hash is validated up front.
//
// Parameters:
//   - hashes: Argon2id PHC strings; levels without an entry cannot be reached
//     by password
//
// Returns:
//   - *PasswordDecider: ready for use
//   - error: if a level is invalid or a hash is malformed
func NewPasswordDecider(hashes map[Userlevel]string) (*PasswordDecider, error) {
	d := &PasswordDecider{hashes: make(map[Userlevel]string, len(hashes))}
	for level, h := range hashes {
		if !level.IsValid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidUserlevel, int(level))
		}
		if _, err := decodePHC(h); err != nil {
			return nil, fmt.Errorf("password hash for %s: %w", level, err)
		}
		d.hashes[level] = h
	}
	return d, nil
}

// Decide implements Decider.
func (d *PasswordDecider) Decide(req Request) bool {
	if req.Credential == "" {
		return false
	}
	for level := req.Requested; level <= Internal; level++ {
		h, ok := d.hashes[level]
		if !ok {
			continue
		}
		if match, err := VerifyPassword(req.Credential, h); err == nil && match {
			return true
		}
	}
	return false
}
