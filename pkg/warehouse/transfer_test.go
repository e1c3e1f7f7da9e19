package warehouse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// transferRequest は倉庫間移動の明細リクエストを組み立てるヘルパー
func transferRequest(line *warehouse.ReceivedLine, destWarehouse, destLocation string, quantity int64) warehouse.TransferLineRequest {
	return warehouse.TransferLineRequest{
		ProductID:         line.ProductID,
		SourceWarehouseID: testWarehouse,
		SourceLocationID:  "BIN-1",
		DestWarehouseID:   destWarehouse,
		DestLocationID:    destLocation,
		BatchNumber:       line.BatchNumber,
		LotCode:           line.LotCode,
		Quantity:          quantity,
	}
}

// TestTransfer_ZeroSum は移動前後で総数量が不変であることのテスト
func TestTransfer_ZeroSum(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	transfer, err := engine.Transfers.Transfer(ctx, "TRF-001",
		[]warehouse.TransferLineRequest{transferRequest(line, otherWarehouse, "BIN-OSAKA", 5)})
	require.NoError(t, err)
	assert.Equal(t, warehouse.TransferStatusCompleted, transfer.Status)

	source, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(15), source)

	destKey := warehouse.InventoryKey{
		WarehouseID: otherWarehouse,
		ProductID:   line.ProductID,
		LocationID:  "BIN-OSAKA",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
	}
	dest, err := engine.Ledger.GetQuantity(ctx, destKey)
	require.NoError(t, err)
	assert.Equal(t, int64(5), dest)

	// 移動先レコードは移動元の有効期限を引き継ぐ
	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{
		WarehouseID: otherWarehouse,
		ProductID:   line.ProductID,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ExpiryDate)
	require.NotNil(t, line.ExpiryDate)
	assert.True(t, records[0].ExpiryDate.Equal(*line.ExpiryDate))
}

// TestTransfer_InsufficientSourceAtomic は在庫不足時の原子性テスト
func TestTransfer_InsufficientSourceAtomic(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	_, err := engine.Transfers.Transfer(ctx, "TRF-002",
		[]warehouse.TransferLineRequest{transferRequest(line, otherWarehouse, "BIN-OSAKA", 50)})
	assert.True(t, errors.Is(err, warehouse.ErrInsufficientStock))

	// 両側とも変化なし
	source, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), source)
	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{WarehouseID: otherWarehouse})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// TestTransfer_MultiLineAtomic は複数明細のうち1件失敗で全体が巻き戻るテスト
func TestTransfer_MultiLineAtomic(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	_, err := engine.Transfers.Transfer(ctx, "TRF-003",
		[]warehouse.TransferLineRequest{
			transferRequest(line, otherWarehouse, "BIN-OSAKA", 5),
			transferRequest(line, otherWarehouse, "BIN-OSAKA", 50),
		})
	assert.True(t, errors.Is(err, warehouse.ErrInsufficientStock))

	source, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), source)
}

// TestTransfer_SameLocationRejected は同一ロケーション間移動の拒否テスト
func TestTransfer_SameLocationRejected(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	_, err := engine.Transfers.Transfer(ctx, "TRF-004",
		[]warehouse.TransferLineRequest{transferRequest(line, testWarehouse, "BIN-1", 5)})
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindValidation, domainErr.Kind)
	}
}

// TestTransfer_GetTransfer は移動記録取得のテスト
func TestTransfer_GetTransfer(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	created, err := engine.Transfers.Transfer(ctx, "TRF-005",
		[]warehouse.TransferLineRequest{transferRequest(line, otherWarehouse, "BIN-OSAKA", 5)})
	require.NoError(t, err)

	transfer, lines, err := engine.Transfers.GetTransfer(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.TransferStatusCompleted, transfer.Status)
	assert.Equal(t, "TRF-005", transfer.Reference)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(5), lines[0].Quantity)
	assert.Equal(t, "BIN-OSAKA", lines[0].DestLocationID)
}

// TestTransfer_PairedAudits は出庫・入庫の対になった監査記録のテスト
func TestTransfer_PairedAudits(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	_, err := engine.Transfers.Transfer(ctx, "TRF-006",
		[]warehouse.TransferLineRequest{transferRequest(line, otherWarehouse, "BIN-OSAKA", 5)})
	require.NoError(t, err)

	outs, err := engine.ListAuditRecords(ctx, warehouse.AuditFilter{Operation: "transfer_out"})
	require.NoError(t, err)
	ins, err := engine.ListAuditRecords(ctx, warehouse.AuditFilter{Operation: "transfer_in"})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	require.Len(t, ins, 1)
	assert.Equal(t, int64(-5), outs[0].Delta)
	assert.Equal(t, int64(5), ins[0].Delta)
	assert.Equal(t, testWarehouse, outs[0].WarehouseID)
	assert.Equal(t, otherWarehouse, ins[0].WarehouseID)
}

// TestTransfer_FullQuantityPrunesSource は全量移動で移動元記録が削除されるテスト
func TestTransfer_FullQuantityPrunesSource(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	_, err := engine.Transfers.Transfer(ctx, "TRF-007",
		[]warehouse.TransferLineRequest{transferRequest(line, otherWarehouse, "BIN-OSAKA", 20)})
	require.NoError(t, err)

	// 移動元の数量ゼロ記録は残らない
	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{
		WarehouseID: testWarehouse,
		ProductID:   line.ProductID,
		LocationID:  "BIN-1",
	})
	require.NoError(t, err)
	assert.Empty(t, records)

	// 全量でも移動先は数量と有効期限を引き継ぐ
	destKey := warehouse.InventoryKey{
		WarehouseID: otherWarehouse,
		ProductID:   line.ProductID,
		LocationID:  "BIN-OSAKA",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
	}
	quantity, err := engine.Ledger.GetQuantity(ctx, destKey)
	require.NoError(t, err)
	assert.Equal(t, int64(20), quantity)
	dest, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{WarehouseID: otherWarehouse, ProductID: line.ProductID})
	require.NoError(t, err)
	require.Len(t, dest, 1)
	require.NotNil(t, dest[0].ExpiryDate)
	require.NotNil(t, line.ExpiryDate)
	assert.True(t, dest[0].ExpiryDate.Equal(*line.ExpiryDate))
}
