// Package cachebust appends content hashes to local asset references so that
// browsers refetch an asset exactly when its bytes change.
package cachebust

import "strconv"

// Hash returns a short base-36 token for data using a DJB2 variant. The
// bytes are folded from last to first with h = uint32(h*33) ^ b, starting at
// 5381. It is fast and stable across runs; it is not collision resistant and
// must not be used for anything security related.
func Hash(data []byte) string {
	h := uint32(5381)
	for i := len(data) - 1; i >= 0; i-- {
		h = (h * 33) ^ uint32(data[i])
	}
	return strconv.FormatUint(uint64(h), 36)
}
