package adcover

import (
	_ "embed"
	"encoding/base64"
)

//go:embed overlay.svg
var overlaySVG []byte

// DefaultAsset is the placeholder image used when the config names none.
var DefaultAsset = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(overlaySVG)
