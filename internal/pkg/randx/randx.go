/*
Package randx provides generation of unique identifiers used across the chat core.

Message identifiers are UUID v4 strings; room identifiers are fixed-length
Base62 codes drawn from crypto/rand.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the number of characters in the Base62 set.
	Base62Len = int64(len(Base62Chars))

	// RoomIDLength is the fixed length of a generated room identifier.
	RoomIDLength = 12
)

// MessageID generates a UUID v4 string serving as a message identifier.
// Identifiers are assigned once and never reused.
func MessageID() string {
	return uuid.New().String()
}

// RoomID generates a Base62 room identifier using crypto/rand.
func RoomID() (string, error) {
	result := make([]byte, RoomIDLength)

	for i := range RoomIDLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidRoomID reports whether the given string is a well-formed room identifier.
func IsValidRoomID(id string) bool {
	if len(id) != RoomIDLength {
		return false
	}

	for _, char := range id {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
