package wallet

import (
	"math/rand"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/zeebo/blake3"
)

// LabelColors is the palette address colors are drawn from.
var LabelColors = []string{
	"#3ed282",
	"#1bc6f5",
	"#6a4ef2",
	"#f16b68",
	"#fbb838",
	"#ee57d8",
	"#5ac4a8",
	"#9e9e9e",
}

// Colorer assigns presentation colors to addresses. It is kept apart from
// derivation so key material stays deterministic.
type Colorer interface {
	Color(addr types.Address) string
}

// RandomColors picks a uniformly random palette entry on every call.
type RandomColors struct{}

// Color implements Colorer.
func (RandomColors) Color(types.Address) string {
	return LabelColors[rand.Intn(len(LabelColors))]
}

// HashColors derives the color from the address hash, so the same address
// always gets the same color.
type HashColors struct{}

// Color implements Colorer.
func (HashColors) Color(addr types.Address) string {
	sum := blake3.Sum256(addr[:])
	return LabelColors[int(sum[0])%len(LabelColors)]
}

// FixedColor returns the same color for every address.
type FixedColor string

// Color implements Colorer.
func (c FixedColor) Color(types.Address) string {
	return string(c)
}
