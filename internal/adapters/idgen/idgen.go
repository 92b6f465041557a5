// Package idgen generates job ids that are safe in URLs and file names.
package idgen

import (
	"crypto/rand"
	"encoding/base32"
	"strings"

	"github.com/google/uuid"

	"github.com/target/printmaker/internal/core"
)

// UUID generates random (version 4) UUIDs without dashes.
type UUID struct{}

var _ core.IDGenerator = UUID{}

func (UUID) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Random generates 130 random bits as 26 lowercase base32 characters.
type Random struct{}

var _ core.IDGenerator = Random{}

var encoding = base32.NewEncoding("0123456789abcdefghijklmnopqrstuv").WithPadding(base32.NoPadding)

func (Random) Generate() string {
	var b [17]byte
	_, _ = rand.Read(b[:])
	// 17 bytes encode to 28 characters; keep the first 26 (130 bits).
	return encoding.EncodeToString(b[:])[:26]
}

// Func adapts a function to core.IDGenerator.
type Func func() string

func (f Func) Generate() string { return f() }

// ByName returns the generator registered under name, defaulting to UUID.
func ByName(name string) (core.IDGenerator, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "uuid":
		return UUID{}, true
	case "random":
		return Random{}, true
	}
	return nil, false
}
