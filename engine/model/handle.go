package model

import "fmt"

// AssetHandle identifies a cached Model. It is the content hash the model was imported under,
// so it stays valid for as long as the model remains in the cache.
type AssetHandle uint64

// NullHandle never refers to a model.
const NullHandle AssetHandle = 0

// IsNull reports whether h is the null handle.
func (h AssetHandle) IsNull() bool {
	return h == NullHandle
}

func (h AssetHandle) String() string {
	return fmt.Sprintf("asset:%016x", uint64(h))
}
