package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

var errUnknownHashFormat = errors.New("unknown password hash format")

// HashPassword returns a bcrypt hash of plain.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored hash.
//
// bcrypt hashes are the native format. Werkzeug hashes of the form
// "pbkdf2:<digest>:<iterations>$<salt>$<hex>" and "scrypt:<n>:<r>:<p>$<salt>$<hex>"
// are accepted so accounts imported from older deployments keep working.
func CheckPassword(stored, plain string) (bool, error) {
	switch {
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case strings.HasPrefix(stored, "pbkdf2:"), strings.HasPrefix(stored, "scrypt:"):
		return checkWerkzeug(stored, plain)
	default:
		return false, errUnknownHashFormat
	}
}

func checkWerkzeug(stored, plain string) (bool, error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false, errUnknownHashFormat
	}
	method, salt, wantHex := parts[0], parts[1], parts[2]
	want, err := hex.DecodeString(wantHex)
	if err != nil {
		return false, fmt.Errorf("decode werkzeug hash: %w", err)
	}

	keyLen, err := werkzeugKeyLen(method)
	if err != nil {
		return false, err
	}
	if len(want) != keyLen {
		return false, errUnknownHashFormat
	}

	got, err := deriveWerkzeug(method, []byte(salt), []byte(plain), keyLen)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// werkzeugKeyLen is the derived key size Werkzeug writes: the digest size for
// pbkdf2 and 64 bytes for scrypt.
func werkzeugKeyLen(method string) (int, error) {
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		if len(fields) < 2 {
			return 0, errUnknownHashFormat
		}
		switch fields[1] {
		case "sha1":
			return sha1.Size, nil
		case "sha256":
			return sha256.Size, nil
		case "sha512":
			return sha512.Size, nil
		default:
			return 0, fmt.Errorf("unsupported pbkdf2 digest %q", fields[1])
		}
	case "scrypt":
		return 64, nil
	default:
		return 0, errUnknownHashFormat
	}
}

func deriveWerkzeug(method string, salt, plain []byte, keyLen int) ([]byte, error) {
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		if len(fields) < 2 {
			return nil, errUnknownHashFormat
		}
		var h func() hash.Hash
		switch fields[1] {
		case "sha1":
			h = sha1.New
		case "sha256":
			h = sha256.New
		case "sha512":
			h = sha512.New
		default:
			return nil, fmt.Errorf("unsupported pbkdf2 digest %q", fields[1])
		}
		iterations := 600000
		if len(fields) > 2 {
			n, err := strconv.Atoi(fields[2])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid pbkdf2 iterations %q", fields[2])
			}
			iterations = n
		}
		return pbkdf2.Key(plain, salt, iterations, keyLen, h), nil
	case "scrypt":
		n, r, p := 32768, 8, 1
		if len(fields) == 4 {
			var err error
			if n, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("invalid scrypt n: %w", err)
			}
			if r, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("invalid scrypt r: %w", err)
			}
			if p, err = strconv.Atoi(fields[3]); err != nil {
				return nil, fmt.Errorf("invalid scrypt p: %w", err)
			}
		}
		key, err := scrypt.Key(plain, salt, n, r, p, keyLen)
		if err != nil {
			return nil, fmt.Errorf("scrypt: %w", err)
		}
		return key, nil
	default:
		return nil, errUnknownHashFormat
	}
}
