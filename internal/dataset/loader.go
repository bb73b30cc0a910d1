package dataset

import (
	"context"
	"log/slog"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
	"github.com/rith-wik/attribute-forecasting-system/internal/storage"
)

// Well-known object names for the persisted dataset snapshots.
const (
	ProductsObject  = "products.csv"
	SalesObject     = "sales.csv"
	InventoryObject = "inventory.csv"
	TrendsObject    = "social_trends.csv"
)

// Loader reads the current dataset snapshots out of the store.
type Loader struct {
	store  storage.Store
	logger *slog.Logger
}

// NewLoader creates a snapshot loader over the given store.
func NewLoader(store storage.Store, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// LoadSnapshot reads all four tables. Missing or unreadable tables load
// as empty; the pipeline treats empty inputs as a short-circuit, not an
// error.
func (l *Loader) LoadSnapshot(ctx context.Context) models.Snapshot {
	var snap models.Snapshot

	if t := l.loadTable(ctx, ProductsObject); t != nil {
		snap.Products = DecodeProducts(t)
	}
	if t := l.loadTable(ctx, SalesObject); t != nil {
		snap.Sales = DecodeSales(t)
	}
	if t := l.loadTable(ctx, InventoryObject); t != nil {
		snap.Inventory = DecodeInventory(t)
	}
	if t := l.loadTable(ctx, TrendsObject); t != nil {
		snap.Trends = DecodeTrends(t)
	}
	return snap
}

func (l *Loader) loadTable(ctx context.Context, name string) *Table {
	exists, err := l.store.Exists(ctx, name)
	if err != nil || !exists {
		if err != nil {
			l.logger.Warn("Failed to check dataset object", "object", name, "error", err)
		}
		return nil
	}
	data, err := l.store.Download(ctx, name)
	if err != nil {
		l.logger.Warn("Failed to download dataset object", "object", name, "error", err)
		return nil
	}
	table, err := ReadCSVBytes(data)
	if err != nil {
		l.logger.Warn("Failed to parse dataset object", "object", name, "error", err)
		return nil
	}
	l.logger.Info("Loaded dataset object", "object", name, "rows", table.Len())
	return table
}

// SaveTable persists a table under the well-known name for its type.
func (l *Loader) SaveTable(ctx context.Context, datasetType string, t *Table) error {
	data, err := t.EncodeCSV()
	if err != nil {
		return err
	}
	return l.store.Upload(ctx, ObjectName(datasetType), data)
}

// LoadExisting returns the stored table for a dataset type, or nil when
// none exists yet.
func (l *Loader) LoadExisting(ctx context.Context, datasetType string) *Table {
	return l.loadTable(ctx, ObjectName(datasetType))
}

// ObjectName maps a dataset type to its storage object name.
func ObjectName(datasetType string) string {
	switch datasetType {
	case TypeProducts:
		return ProductsObject
	case TypeSales:
		return SalesObject
	case TypeInventory:
		return InventoryObject
	}
	return datasetType + ".csv"
}
