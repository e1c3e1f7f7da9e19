package warehouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/storage"
)

func testKey(locationID, batch string) warehouse.InventoryKey {
	return warehouse.InventoryKey{
		WarehouseID: testWarehouse,
		ProductID:   testProduct,
		LocationID:  locationID,
		BatchNumber: batch,
		LotCode:     testLot,
	}
}

// TestLedger_AdjustCreatesRecord は正の調整による記録作成のテスト
func TestLedger_AdjustCreatesRecord(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	key := testKey("BIN-1", "B-001")

	expiry := time.Date(2031, time.April, 7, 0, 0, 0, 0, time.UTC)
	quantity, err := engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{ExpiryDate: &expiry, Reason: "初期入庫"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), quantity)

	got, err := engine.Ledger.GetQuantity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got)

	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{ProductID: testProduct})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, key, records[0].Key())
	require.NotNil(t, records[0].ExpiryDate)
	assert.True(t, expiry.Equal(*records[0].ExpiryDate))
	assert.Equal(t, "tester", records[0].UpdatedBy)
}

// TestLedger_NonNegativity は非負制約のテスト
func TestLedger_NonNegativity(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	key := testKey("BIN-1", "B-001")

	// 記録が存在しないキーへの出庫は在庫不足
	_, err := engine.Ledger.Adjust(ctx, key, -5, warehouse.AdjustOptions{})
	assert.True(t, errors.Is(err, warehouse.ErrInsufficientStock))

	_, err = engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{})
	require.NoError(t, err)

	// 現在庫を下回る出庫は拒否され、数量は変わらない
	_, err = engine.Ledger.Adjust(ctx, key, -11, warehouse.AdjustOptions{})
	assert.True(t, errors.Is(err, warehouse.ErrInsufficientStock))

	quantity, err := engine.Ledger.GetQuantity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(10), quantity)
}

// TestLedger_ZeroPrunesRecord はゼロ到達時の記録削除テスト
func TestLedger_ZeroPrunesRecord(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	key := testKey("BIN-1", "B-001")

	_, err := engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{})
	require.NoError(t, err)

	quantity, err := engine.Ledger.Adjust(ctx, key, -10, warehouse.AdjustOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), quantity)

	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{ProductID: testProduct})
	require.NoError(t, err)
	assert.Empty(t, records)

	// ゼロ化後の再入庫は新しい記録を作成できる
	quantity, err = engine.Ledger.Adjust(ctx, key, 3, warehouse.AdjustOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), quantity)
}

// TestLedger_ZeroDeltaRejected はゼロ数量変化の拒否テスト
func TestLedger_ZeroDeltaRejected(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	_, err := engine.Ledger.Adjust(ctx, testKey("BIN-1", "B-001"), 0, warehouse.AdjustOptions{})
	assert.Error(t, err)
}

// TestLedger_CapacityExceeded は収容数上限のテスト
func TestLedger_CapacityExceeded(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	// BIN-SMALLの上限は10
	_, err := engine.Ledger.Adjust(ctx, testKey("BIN-SMALL", "B-001"), 8, warehouse.AdjustOptions{})
	require.NoError(t, err)

	// 占有数はバッチをまたいで合算される
	_, err = engine.Ledger.Adjust(ctx, testKey("BIN-SMALL", "B-002"), 3, warehouse.AdjustOptions{})
	assert.True(t, errors.Is(err, warehouse.ErrCapacityExceeded))

	// 上限ちょうどまでは許可
	quantity, err := engine.Ledger.Adjust(ctx, testKey("BIN-SMALL", "B-002"), 2, warehouse.AdjustOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), quantity)

	// 出庫は上限に関係なく常に許可
	_, err = engine.Ledger.Adjust(ctx, testKey("BIN-SMALL", "B-001"), -8, warehouse.AdjustOptions{})
	assert.NoError(t, err)
}

// TestLedger_LockedLocation はロック中ロケーションの拒否テスト
func TestLedger_LockedLocation(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	key := testKey("BIN-1", "B-001")

	require.NoError(t, engine.SetLocationLock(ctx, "BIN-1", true))
	_, err := engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{})
	assert.True(t, errors.Is(err, warehouse.ErrLocationLocked))

	// 解除後は許可
	require.NoError(t, engine.SetLocationLock(ctx, "BIN-1", false))
	_, err = engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{})
	assert.NoError(t, err)
}

// TestLedger_UnknownLocation は存在しないロケーションの拒否テスト
func TestLedger_UnknownLocation(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	_, err := engine.Ledger.Adjust(ctx, testKey("NO-SUCH-BIN", "B-001"), 10, warehouse.AdjustOptions{})
	assert.True(t, errors.Is(err, warehouse.ErrLocationNotFound))
}

// TestLedger_WarehouseMismatch はキーとロケーションの倉庫不一致テスト
func TestLedger_WarehouseMismatch(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	// BIN-OSAKAはOSAKA-1に属する
	key := warehouse.InventoryKey{
		WarehouseID: testWarehouse,
		ProductID:   testProduct,
		LocationID:  "BIN-OSAKA",
		BatchNumber: "B-001",
		LotCode:     testLot,
	}
	_, err := engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{})
	assert.Error(t, err)
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindValidation, domainErr.Kind)
	}
}

// TestLedger_AuditTrail は調整ごとの監査記録テスト
func TestLedger_AuditTrail(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	key := testKey("BIN-1", "B-001")

	_, err := engine.Ledger.Adjust(ctx, key, 10, warehouse.AdjustOptions{Reason: "棚卸修正"})
	require.NoError(t, err)
	_, err = engine.Ledger.Adjust(ctx, key, -4, warehouse.AdjustOptions{})
	require.NoError(t, err)

	// 失敗した調整は監査に残らない
	_, err = engine.Ledger.Adjust(ctx, key, -100, warehouse.AdjustOptions{})
	require.Error(t, err)

	audits, err := engine.ListAuditRecords(ctx, warehouse.AuditFilter{ProductID: testProduct})
	require.NoError(t, err)
	require.Len(t, audits, 2)
	for _, a := range audits {
		assert.Equal(t, "adjust", a.Operation)
		assert.Equal(t, "tester", a.ActorID)
	}
}

// ベンチマークテスト
func BenchmarkLedger_Adjust(b *testing.B) {
	engine := warehouse.NewEngine(storage.NewMemoryStorage(), zap.NewNop(), warehouse.DefaultConfig())
	ctx := warehouse.WithActor(context.Background(), "bench")

	engine.CreateProduct(ctx, &warehouse.Product{
		ID:             testProduct,
		Name:           "テストタイヤ",
		SKU:            "SKU-TIRE-A",
		ShelfLifeYears: 6,
	})
	engine.CreateLocation(ctx, &warehouse.Location{
		ID:          "BENCH-BIN",
		Code:        "BENCH-01",
		WarehouseID: testWarehouse,
		Type:        warehouse.LocationTypeBin,
		IsActive:    true,
	})
	key := testKey("BENCH-BIN", "B-BENCH")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Ledger.Adjust(ctx, key, 1, warehouse.AdjustOptions{})
	}
}
