// Package cart holds the session-scoped shopping cart: lines keyed by a
// configuration fingerprint, merged on add, repriced against the live
// catalog on every mutation.
package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity rejects cart additions with a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// LineOption is an option snapshot held on a cart line.
type LineOption struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// Line is one distinct (item, option-set) combination with a quantity.
// The resolved prices are session snapshots only; they are re-validated
// against the catalog before any order is written.
type Line struct {
	Key       string          `json:"key"`
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	BasePrice decimal.Decimal `json:"base_price"`
	Options   []LineOption    `json:"options,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OptionIDs returns the ids of the line's selected options.
func (l Line) OptionIDs() []string {
	ids := make([]string, len(l.Options))
	for i, o := range l.Options {
		ids[i] = o.ID
	}
	return ids
}

// Cart is the full session cart. Lines preserve insertion order.
type Cart struct {
	SessionID string `json:"session_id"`
	Lines     []Line `json:"lines"`
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Subtotal returns the sum of unit price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum.Round(2)
}

func (c *Cart) find(key string) int {
	for i, l := range c.Lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}

// Fingerprint derives the deterministic line key for an item and its
// selected options. Identical selections always collapse to the same key.
func Fingerprint(itemID string, optionIDs []string) string {
	sorted := append([]string(nil), optionIDs...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return itemID + ":" + hex.EncodeToString(sum[:8])
}

// Store persists carts per session. Implementations own TTL and expiry;
// no persistence is guaranteed across session expiry.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Put(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}
