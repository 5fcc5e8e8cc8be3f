package purchase

import "fmt"

// Asset identifies which payment path a purchase uses: the stable
// pegged token or the chain's native coin.
type Asset int

const (
	AssetStable Asset = iota
	AssetNative
)

// Assets lists all payment assets, one lane each.
var Assets = []Asset{AssetStable, AssetNative}

func (a Asset) String() string {
	switch a {
	case AssetStable:
		return "stable"
	case AssetNative:
		return "native"
	default:
		return fmt.Sprintf("asset(%d)", int(a))
	}
}

// ParseAsset parses an asset identifier as used in API requests.
func ParseAsset(s string) (Asset, error) {
	switch s {
	case "stable":
		return AssetStable, nil
	case "native":
		return AssetNative, nil
	default:
		return 0, fmt.Errorf("unknown asset: %q", s)
	}
}
