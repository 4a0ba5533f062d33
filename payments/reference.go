package payments

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const refPrefix = "ref-"

var refSeq atomic.Uint64

// MintReference builds a payment reference unique per attempt. It
// embeds the order id so a gateway callback can always be reconciled
// back to its order, plus a timestamp nonce so re-initiations never
// collide. The sequence suffix keeps references distinct even when two
// mints land on the same clock reading.
func MintReference(orderID string) string {
	return fmt.Sprintf("%s%s-%d%03d", refPrefix, orderID, time.Now().UnixNano(), refSeq.Add(1)%1000)
}

// OrderIDFromReference recovers the order id embedded in a reference.
func OrderIDFromReference(reference string) (string, bool) {
	if !strings.HasPrefix(reference, refPrefix) {
		return "", false
	}
	body := strings.TrimPrefix(reference, refPrefix)
	i := strings.LastIndex(body, "-")
	if i <= 0 {
		return "", false
	}
	return body[:i], true
}
