package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// AlgorithmArgon2id is the PHC identifier of the only supported algorithm.
	AlgorithmArgon2id = "argon2id"

	saltLength = 16 // Length of the generated salt
	keyLength  = 32 // Length of the generated hash
)

// Bounds applied when parsing stored hashes so a corrupted or hostile row
// cannot make Verify allocate unbounded memory.
const (
	maxMemoryKiB    = 1024 * 1024 // 1 GiB
	maxIterations   = 16
	maxParallelism  = 64
	minSaltLength   = 8
	minDigestLength = 16
	maxDigestLength = 64
)

// Argon2Params are the Argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // Memory usage in KiB
	Iterations  uint32 // Iteration count
	Parallelism uint8  // Number of threads
}

// DefaultArgon2Params uses 19 MiB, 2 iterations, 1 thread.
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
}

// PasswordHash is the decoded form of a PHC argon2id string:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<salt>$<digest>
type PasswordHash struct {
	Algorithm string
	Version   int
	Params    Argon2Params
	Salt      []byte
	Digest    []byte
}

// String encodes the hash back into its PHC form.
func (h PasswordHash) String() string {
	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		h.Algorithm,
		h.Version,
		h.Params.Memory,
		h.Params.Iterations,
		h.Params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Digest),
	)
}

// FormatError reports a stored password hash that is not a well-formed
// argon2id PHC string. It is never a password mismatch: callers treat it as
// a credential that must be reset.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return "cryptox: invalid password hash: " + e.Reason + ": " + e.Err.Error()
	}
	return "cryptox: invalid password hash: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParsePasswordHash decodes a PHC argon2id string.
func ParsePasswordHash(encoded string) (PasswordHash, error) {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", "salt", "hash"]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return PasswordHash{}, &FormatError{Reason: "expected 6 parts"}
	}
	if parts[1] != AlgorithmArgon2id {
		return PasswordHash{}, &FormatError{Reason: fmt.Sprintf("unsupported algorithm %q", parts[1])}
	}

	version, err := parseField(parts[2], "v")
	if err != nil {
		return PasswordHash{}, &FormatError{Reason: "bad version", Err: err}
	}
	if version != argon2.Version {
		return PasswordHash{}, &FormatError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return PasswordHash{}, &FormatError{Reason: "bad parameters", Err: err}
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return PasswordHash{}, &FormatError{Reason: "bad salt encoding", Err: err}
	}
	if len(salt) < minSaltLength {
		return PasswordHash{}, &FormatError{Reason: "salt too short"}
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return PasswordHash{}, &FormatError{Reason: "bad digest encoding", Err: err}
	}
	if len(digest) < minDigestLength || len(digest) > maxDigestLength {
		return PasswordHash{}, &FormatError{Reason: "digest length out of range"}
	}

	return PasswordHash{
		Algorithm: AlgorithmArgon2id,
		Version:   int(version),
		Params:    params,
		Salt:      salt,
		Digest:    digest,
	}, nil
}

// parseParams parses "m=X,t=Y,p=Z" strictly, in that order.
func parseParams(s string) (Argon2Params, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return Argon2Params{}, fmt.Errorf("expected m,t,p got %q", s)
	}

	mem, err := parseField(fields[0], "m")
	if err != nil {
		return Argon2Params{}, err
	}
	iters, err := parseField(fields[1], "t")
	if err != nil {
		return Argon2Params{}, err
	}
	par, err := parseField(fields[2], "p")
	if err != nil {
		return Argon2Params{}, err
	}

	switch {
	case mem == 0 || mem > maxMemoryKiB:
		return Argon2Params{}, fmt.Errorf("memory %d out of range", mem)
	case iters == 0 || iters > maxIterations:
		return Argon2Params{}, fmt.Errorf("iterations %d out of range", iters)
	case par == 0 || par > maxParallelism:
		return Argon2Params{}, fmt.Errorf("parallelism %d out of range", par)
	}

	return Argon2Params{
		Memory:      uint32(mem),   // #nosec G115 - bounded above
		Iterations:  uint32(iters), // #nosec G115 - bounded above
		Parallelism: uint8(par),    // #nosec G115 - bounded above
	}, nil
}

func parseField(field, key string) (uint64, error) {
	value, ok := strings.CutPrefix(field, key+"=")
	if !ok {
		return 0, fmt.Errorf("expected %s=, got %q", key, field)
	}
	return strconv.ParseUint(value, 10, 32)
}

// CredentialHasher hashes and verifies account passwords with Argon2id. It
// holds no mutable state and is safe for concurrent use.
type CredentialHasher struct {
	params Argon2Params
}

// NewCredentialHasher returns a hasher producing hashes with params.
// Zero fields fall back to DefaultArgon2Params.
func NewCredentialHasher(params Argon2Params) *CredentialHasher {
	if params.Memory == 0 {
		params.Memory = DefaultArgon2Params.Memory
	}
	if params.Iterations == 0 {
		params.Iterations = DefaultArgon2Params.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = DefaultArgon2Params.Parallelism
	}
	return &CredentialHasher{params: params}
}

// Params returns the parameters new hashes are produced with.
func (h *CredentialHasher) Params() Argon2Params { return h.params }

// Hash generates a PHC-format Argon2id hash string with a fresh random salt.
func (h *CredentialHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		keyLength,
	)

	return PasswordHash{
		Algorithm: AlgorithmArgon2id,
		Version:   argon2.Version,
		Params:    h.params,
		Salt:      salt,
		Digest:    digest,
	}.String(), nil
}

// Verify recomputes the digest under the parameters embedded in encoded and
// compares it in constant time. A malformed encoded hash returns a
// *FormatError, never (false, nil).
func (h *CredentialHasher) Verify(encoded, password string) (bool, error) {
	parsed, err := ParsePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.Salt,
		parsed.Params.Iterations,
		parsed.Params.Memory,
		parsed.Params.Parallelism,
		uint32(len(parsed.Digest)), // #nosec G115 - bounded by maxDigestLength
	)

	return subtle.ConstantTimeCompare(computed, parsed.Digest) == 1, nil
}

// NeedsRehash reports whether encoded should be replaced by a fresh hash:
// it is malformed, or was produced with different parameters.
func (h *CredentialHasher) NeedsRehash(encoded string) bool {
	parsed, err := ParsePasswordHash(encoded)
	if err != nil {
		return true
	}
	return parsed.Params != h.params || len(parsed.Digest) != keyLength
}
