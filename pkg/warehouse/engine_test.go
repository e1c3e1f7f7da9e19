package warehouse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse/storage"
)

// テスト用の共通セットアップ。インメモリストレージ上にエンジンを構築し、
// 標準的な商品・ロケーションのマスタデータを登録する。

const (
	testProduct    = "TIRE-A"
	testWarehouse  = "TOKYO-1"
	otherWarehouse = "OSAKA-1"
	testLot        = "1525"
)

func newTestEngine(t *testing.T) (*warehouse.Engine, context.Context) {
	t.Helper()
	engine := warehouse.NewEngine(storage.NewMemoryStorage(), zap.NewNop(), warehouse.DefaultConfig())
	ctx := warehouse.WithActor(context.Background(), "tester")
	return engine, ctx
}

func capacityOf(n int64) *int64 { return &n }

// seedMasterData は標準的なテストマスタデータを登録する
func seedMasterData(t *testing.T, ctx context.Context, engine *warehouse.Engine) {
	t.Helper()
	require.NoError(t, engine.CreateProduct(ctx, &warehouse.Product{
		ID:             testProduct,
		Name:           "テストタイヤ",
		SKU:            "SKU-TIRE-A",
		ShelfLifeYears: 6,
	}))

	locations := []*warehouse.Location{
		{ID: "BIN-1", Code: "A-01", WarehouseID: testWarehouse, Type: warehouse.LocationTypeBin, MaxCapacityUnits: capacityOf(100), IsActive: true},
		{ID: "BIN-SMALL", Code: "A-02", WarehouseID: testWarehouse, Type: warehouse.LocationTypeBin, MaxCapacityUnits: capacityOf(10), IsActive: true},
		{ID: "SHIP-1", Code: "SHIP-01", WarehouseID: testWarehouse, Type: warehouse.LocationTypeShippingArea, IsActive: true},
		{ID: "QUAR-1", Code: "Q-01", WarehouseID: testWarehouse, Type: warehouse.LocationTypeQuarantine, IsActive: true},
		{ID: "BIN-OSAKA", Code: "B-01", WarehouseID: otherWarehouse, Type: warehouse.LocationTypeBin, MaxCapacityUnits: capacityOf(100), IsActive: true},
	}
	for _, l := range locations {
		require.NoError(t, engine.CreateLocation(ctx, l))
	}
}

// receiveStock は入荷から格納までを実行し、受領明細を返す
func receiveStock(t *testing.T, ctx context.Context, engine *warehouse.Engine, locationID string, quantity int64) *warehouse.ReceivedLine {
	t.Helper()
	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-TEST")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-TEST")
	require.NoError(t, err)
	line, err := engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    quantity,
		LotCode:     testLot,
		UnitCost:    decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	_, err = engine.Receiving.Putaway(ctx, line.ID, locationID, quantity)
	require.NoError(t, err)
	return line
}

// stockKey は受領明細が格納された台帳キーを組み立てる
func stockKey(line *warehouse.ReceivedLine, locationID string) warehouse.InventoryKey {
	return warehouse.InventoryKey{
		WarehouseID: testWarehouse,
		ProductID:   testProduct,
		LocationID:  locationID,
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
	}
}

// pickedOrder は注文を作成し全数量をピッキングする
func pickedOrder(t *testing.T, ctx context.Context, engine *warehouse.Engine, line *warehouse.ReceivedLine, locationID string, quantity int64) *warehouse.Order {
	t.Helper()
	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-TEST",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: quantity}})
	require.NoError(t, err)
	_, err = engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  locationID,
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    quantity,
	})
	require.NoError(t, err)
	order, err = engine.Fulfillment.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	return order
}

// TestEngine_CreateProduct は商品登録のバリデーションテスト
func TestEngine_CreateProduct(t *testing.T) {
	engine, ctx := newTestEngine(t)

	err := engine.CreateProduct(ctx, &warehouse.Product{ID: "P-1", Name: "商品", SKU: "SKU-1"})
	assert.NoError(t, err)

	got, err := engine.GetProduct(ctx, "P-1")
	assert.NoError(t, err)
	assert.Equal(t, "SKU-1", got.SKU)

	// SKUなしは拒否
	err = engine.CreateProduct(ctx, &warehouse.Product{ID: "P-2", Name: "商品"})
	assert.Error(t, err)

	// 不正な識別子は拒否
	err = engine.CreateProduct(ctx, &warehouse.Product{ID: "bad id!", Name: "商品", SKU: "SKU-X"})
	assert.Error(t, err)
}

// TestEngine_CreateLocation はロケーション登録のバリデーションテスト
func TestEngine_CreateLocation(t *testing.T) {
	engine, ctx := newTestEngine(t)

	err := engine.CreateLocation(ctx, &warehouse.Location{
		ID: "L-1", Code: "A-01", WarehouseID: testWarehouse,
		Type: warehouse.LocationTypeBin, MaxCapacityUnits: capacityOf(50), IsActive: true,
	})
	assert.NoError(t, err)

	// 不明なタイプは拒否
	err = engine.CreateLocation(ctx, &warehouse.Location{
		ID: "L-2", Code: "A-02", WarehouseID: testWarehouse, Type: "mezzanine",
	})
	assert.Error(t, err)

	// 非正のキャパシティは拒否
	err = engine.CreateLocation(ctx, &warehouse.Location{
		ID: "L-3", Code: "A-03", WarehouseID: testWarehouse,
		Type: warehouse.LocationTypeBin, MaxCapacityUnits: capacityOf(0),
	})
	assert.Error(t, err)
}

// TestEngine_SetLocationLock はロック設定とスコープ確認のテスト
func TestEngine_SetLocationLock(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	require.NoError(t, engine.SetLocationLock(ctx, "BIN-1", true))
	location, err := engine.Registry.GetLocation(ctx, "BIN-1")
	require.NoError(t, err)
	assert.True(t, location.IsLocked)

	require.NoError(t, engine.SetLocationLock(ctx, "BIN-1", false))
	location, err = engine.Registry.GetLocation(ctx, "BIN-1")
	require.NoError(t, err)
	assert.False(t, location.IsLocked)

	// 他倉庫スコープからは見えない
	scoped := warehouse.WithWarehouse(ctx, otherWarehouse)
	err = engine.SetLocationLock(scoped, "BIN-1", true)
	assert.True(t, errors.Is(err, warehouse.ErrLocationNotFound))
}

// TestEngine_WarehouseScope は倉庫スコープによる可視性のテスト
func TestEngine_WarehouseScope(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1", nil)
	require.NoError(t, err)

	// 同一倉庫スコープからは取得できる
	scoped := warehouse.WithWarehouse(ctx, testWarehouse)
	_, err = engine.Fulfillment.GetOrder(scoped, order.ID)
	assert.NoError(t, err)

	// 他倉庫スコープからは存在しない扱い
	foreign := warehouse.WithWarehouse(ctx, otherWarehouse)
	_, err = engine.Fulfillment.GetOrder(foreign, order.ID)
	assert.True(t, errors.Is(err, warehouse.ErrOrderNotFound))
}
