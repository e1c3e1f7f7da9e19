package warehouse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// TestFulfillment_LifecycleToDelivered は配達完了までの正常系ライフサイクルテスト
func TestFulfillment_LifecycleToDelivered(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)
	assert.Equal(t, warehouse.OrderStatusPicked, order.Status)

	order, err := engine.Fulfillment.Stage(ctx, order.ID, "SHIP-1")
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusReadyForPickup, order.Status)
	assert.Equal(t, "SHIP-1", order.StagingLocationID)

	order, err = engine.Fulfillment.AssignDriver(ctx, order.ID, "DRIVER-1")
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusAssigned, order.Status)
	assert.Equal(t, "DRIVER-1", order.DriverID)

	order, err = engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusShipped, order.Status)
	assert.NotEmpty(t, order.TrackingNumber)
	assert.NotEmpty(t, order.DeliveryCode)

	order, err = engine.Fulfillment.MarkOutForDelivery(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusOutForDelivery, order.Status)

	order, err = engine.Fulfillment.MarkDelivered(ctx, order.ID, order.DeliveryCode, "受取人")
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusDelivered, order.Status)

	// 遷移ごとにイベントが残る
	events, err := engine.Fulfillment.ListEvents(ctx, order.ID)
	require.NoError(t, err)
	var changes int
	for _, event := range events {
		if event.EventType == "status_changed" {
			changes++
		}
	}
	assert.GreaterOrEqual(t, changes, 4)
}

// TestFulfillment_ShipDirectlyFromPicked はステージング省略出荷のテスト
func TestFulfillment_ShipDirectlyFromPicked(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	order, err := engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusShipped, order.Status)
}

// TestFulfillment_StageRequiresShippingArea はステージング先タイプ検証のテスト
func TestFulfillment_StageRequiresShippingArea(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	// 棚タイプへのステージングは拒否
	_, err := engine.Fulfillment.Stage(ctx, order.ID, "BIN-1")
	assert.Error(t, err)

	// 他倉庫の出荷エリアも拒否（スコープ外扱い）
	require.NoError(t, engine.CreateLocation(ctx, &warehouse.Location{
		ID: "SHIP-OSAKA", Code: "SHIP-B", WarehouseID: otherWarehouse,
		Type: warehouse.LocationTypeShippingArea, IsActive: true,
	}))
	_, err = engine.Fulfillment.Stage(ctx, order.ID, "SHIP-OSAKA")
	assert.Error(t, err)
}

// TestFulfillment_DeliveryCodeMismatch は配達確認コード不一致のテスト
func TestFulfillment_DeliveryCodeMismatch(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	order, err := engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)
	order, err = engine.Fulfillment.MarkOutForDelivery(ctx, order.ID)
	require.NoError(t, err)

	_, err = engine.Fulfillment.MarkDelivered(ctx, order.ID, "000000x", "受取人")
	assert.Error(t, err)

	// ステータスは変わらず、失敗イベントが残る
	got, err := engine.Fulfillment.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusOutForDelivery, got.Status)

	events, err := engine.Fulfillment.ListEvents(ctx, order.ID)
	require.NoError(t, err)
	var failed bool
	for _, event := range events {
		if event.EventType == "delivery_failed" {
			failed = true
		}
	}
	assert.True(t, failed)

	// 正しいコードでは完了できる
	_, err = engine.Fulfillment.MarkDelivered(ctx, order.ID, got.DeliveryCode, "受取人")
	assert.NoError(t, err)
}

// TestFulfillment_CancelRestoresPicks は注文キャンセルによる在庫復元テスト
func TestFulfillment_CancelRestoresPicks(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)

	// 2回に分けてピッキングされた注文
	order, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: testProduct, Quantity: 5}})
	require.NoError(t, err)
	req := warehouse.PickRequest{
		OrderID:     order.ID,
		ProductID:   testProduct,
		LocationID:  "BIN-1",
		BatchNumber: line.BatchNumber,
		LotCode:     line.LotCode,
		Quantity:    3,
	}
	_, err = engine.Picking.Pick(ctx, req)
	require.NoError(t, err)
	req.Quantity = 2
	_, err = engine.Picking.Pick(ctx, req)
	require.NoError(t, err)

	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	require.Equal(t, int64(15), quantity)

	order, err = engine.Fulfillment.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.OrderStatusCancelled, order.Status)

	// すべてのピックが元のキーへ戻る
	quantity, err = engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(20), quantity)

	picks, err := engine.Picking.ListPicks(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, picks)
	orderLines, err := engine.Fulfillment.ListLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), orderLines[0].PickedQuantity)
}

// TestFulfillment_CancelAfterShipRejected は出荷後キャンセルの拒否テスト
func TestFulfillment_CancelAfterShipRejected(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	_, err := engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)

	_, err = engine.Fulfillment.Cancel(ctx, order.ID)
	assert.Error(t, err)
	var domainErr *warehouse.DomainError
	if assert.True(t, errors.As(err, &domainErr)) {
		assert.Equal(t, warehouse.KindInvalidStateTransition, domainErr.Kind)
	}

	// 在庫は引き当てられたまま
	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(15), quantity)
}

// TestFulfillment_TrackingImmutable は追跡番号・配達コード不変のテスト
func TestFulfillment_TrackingImmutable(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)
	line := receiveStock(t, ctx, engine, "BIN-1", 20)
	order := pickedOrder(t, ctx, engine, line, "BIN-1", 5)

	shipped, err := engine.Fulfillment.Ship(ctx, order.ID)
	require.NoError(t, err)

	// 出荷後の再取得でも同じ値
	got, err := engine.Fulfillment.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, shipped.TrackingNumber, got.TrackingNumber)
	assert.Equal(t, shipped.DeliveryCode, got.DeliveryCode)
	assert.Len(t, got.DeliveryCode, 6)
}

// TestFulfillment_CreateOrderUnknownProduct は未登録商品注文の拒否テスト
func TestFulfillment_CreateOrderUnknownProduct(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	_, err := engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{{ProductID: "NO-SUCH-PRODUCT", Quantity: 1}})
	assert.True(t, errors.Is(err, warehouse.ErrProductNotFound))

	// 失敗した注文はヘッダも残らない
	_, err = engine.Fulfillment.CreateOrder(ctx, testWarehouse, "CUST-1",
		[]warehouse.OrderLineRequest{
			{ProductID: testProduct, Quantity: 1},
			{ProductID: "NO-SUCH-PRODUCT", Quantity: 1},
		})
	assert.Error(t, err)
}
