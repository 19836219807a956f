package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StockKey identifies a stock record: one product at one warehouse
type StockKey struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
}

// NewStockKey builds a key and rejects nil identifiers
func NewStockKey(productID, warehouseID uuid.UUID) (StockKey, error) {
	if productID == uuid.Nil {
		return StockKey{}, errInvalidProduct
	}
	if warehouseID == uuid.Nil {
		return StockKey{}, errInvalidWarehouse
	}
	return StockKey{ProductID: productID, WarehouseID: warehouseID}, nil
}

// String returns "product/warehouse"
func (k StockKey) String() string {
	return fmt.Sprintf("%s/%s", k.ProductID, k.WarehouseID)
}

// Compare orders keys lexicographically by product ID, then warehouse ID.
// It returns -1, 0 or +1.
func (k StockKey) Compare(other StockKey) int {
	if c := strings.Compare(k.ProductID.String(), other.ProductID.String()); c != 0 {
		return c
	}
	return strings.Compare(k.WarehouseID.String(), other.WarehouseID.String())
}

// OrderKeys returns the two keys in the global acquisition order.
// Every operation touching more than one record must lock and write in this
// order so that opposite-direction transfers cannot deadlock.
func OrderKeys(a, b StockKey) (first, second StockKey) {
	if a.Compare(b) <= 0 {
		return a, b
	}
	return b, a
}
