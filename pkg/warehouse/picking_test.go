package warehouse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// TestPicking_PickReducesLedger はピッキングによる台帳引当のテスト
func TestPicking_PickReducesLedger(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusPendingPick, order.Status)

	pick, err := engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, "tester", pick.CreatedBy)

	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(17), quantity)

	// 明細集計と導出ステータス
	orderLines, err := engine.Fulfillment.ListLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, orderLines, 1)
	assert.Equal(t, int64(3), orderLines[0].PickedQuantity)

	order, err = engine.Fulfillment.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusPartiallyPicked, order.Status)

	// ピック単位のトークンが発行される
	tokens, err := engine.ListUnitTokens(ctx, pick.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
	for _, token := range tokens {
		assert.Equal(t, warehouse.TokenTypePick, token.Type)
	}
}

// TestPicking_OverPick は注文数量超過ピッキングの拒否テスト
func TestPicking_OverPick(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: 5}})
	require.NoError(t, err)

	req := warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    4,
	}
	_, err = engine.Picking.Pick(ctx, req)
	require.NoError(t, err)

	// 在庫は十分でも明細合計が注文数量を超えるピックは拒否
	req.Quantity = 2
	_, err = engine.Picking.Pick(ctx, req)
	assert.True(t, errors.Is(err, warehouse.ErrOverPick))

	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(16), quantity)

	orderLines, err := engine.Fulfillment.ListLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), orderLines[0].PickedQuantity)
}

// TestPicking_InsufficientStockAtomic は在庫不足ピック失敗の原子性テスト
func TestPicking_InsufficientStockAtomic(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 3)

	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: 5}})
	require.NoError(t, err)

	_, err = engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    5,
	})
	assert.True(t, errors.Is(err, warehouse.ErrInsufficientStock))

	// 失敗したピックは何も残さない
	orderLines, err := engine.Fulfillment.ListLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), orderLines[0].PickedQuantity)
	picks, err := engine.Picking.ListPicks(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

// TestPicking_UnpickRoundTrip はピッキング取消の往復テスト
func TestPicking_UnpickRoundTrip(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: 5}})
	require.NoError(t, err)
	pick, err := engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    5,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Picking.Unpick(ctx, pick.ID))

	// 数量は正確に元のキーへ戻る
	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), quantity)

	// 復元された記録は元のロット由来の有効期限を持つ
	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{ProductID: testProduct})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ExpiryDate)
	assert.True(t, line.ExpiryDate.Equal(*records[0].ExpiryDate))

	// ピック記録とトークンは物理削除される
	picks, err := engine.Picking.ListPicks(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, picks)
	tokens, err := engine.ListUnitTokens(ctx, pick.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	order, err = engine.Fulfillment.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusPendingPick, order.Status)
}

// TestPicking_UnpickAfterShipRejected は出荷後のピッキング取消拒否テスト
func TestPicking_UnpickAfterShipRejected(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	_, err := engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)

	picks, err := engine.Picking.ListPicks(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, picks, 1)
	err = engine.Picking.Unpick(ctx, picks[0].ID)
	assert.Error(t, err)
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindInvalidStateTransition, domainErr.Kind)
	}
}

// TestPicking_ProductNotInOrder は注文外商品ピックの拒否テスト
func TestPicking_ProductNotInOrder(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	require.NoError(t, engine.CreateProduct(ctx, &warehouse.Product{
		ID: "TIRE-B", Name: "別商品", SKU: "SKU-TIRE-B",
	}))
	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: "TIRE-B", Quantity: 2}})
	require.NoError(t, err)

	_, err = engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    1,
	})
	assert.Error(t, err)
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindValidation, domainErr.Kind)
	}
}

// TestPicking_RequiresPickableStatus はピッキング可能ステータスのテスト
func TestPicking_RequiresPickableStatus(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	// 明細なしの注文（new）にはピッキングできない
	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1", nil)
	require.NoError(t, err)

	_, err = engine.Picking.Pick(ctx, warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    1,
	})
	assert.Error(t, err)
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindInvalidStateTransition, domainErr.Kind)
	}
}
