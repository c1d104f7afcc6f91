package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CartItem is one line of the client-persisted cart snapshot.
// Identity key is (ID, Size): the same tire in two sizes is two lines.
type CartItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Size      string          `json:"size"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref,omitempty"`
}

// Key returns the cart-line identity key.
func (i CartItem) Key() string {
	return fmt.Sprintf("%d|%s", i.ID, i.Size)
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Valid reports whether the line satisfies the snapshot constraints.
func (i CartItem) Valid() bool {
	return i.Quantity >= 1 && !i.UnitPrice.IsNegative()
}

// CartTotal sums line totals. Shipping is always zero in this design, so the
// cart total is the order total.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CartFingerprint produces a stable identity for the snapshot, independent of
// line ordering. Used to detect material cart changes between payment
// authorizations.
func CartFingerprint(items []CartItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s|%s|%d", item.Key(), item.UnitPrice.String(), item.Quantity))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
