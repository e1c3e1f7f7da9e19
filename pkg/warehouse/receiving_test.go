package warehouse_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/soukoGoFramework/pkg/warehouse"
)

// TestReceiving_ReceiveAccumulates は同一ロット再受領の累積テスト
func TestReceiving_ReceiveAccumulates(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)

	req := warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    10,
		LotCode:     testLot,
		UnitCost:    decimal.NewFromInt(5000),
	}
	first, err := engine.Receiving.Receive(ctx, req)
	require.NoError(t, err)

	// 同一（入荷・コンテナ・商品・ロット）の再受領は明細を複製しない
	req.Quantity = 5
	second, err := engine.Receiving.Receive(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.BatchNumber, second.BatchNumber)
	assert.Equal(t, int64(15), second.ReceivedQuantity)
	assert.Equal(t, int64(15), second.ExpectedQuantity)
	assert.True(t, second.LineValue().Equal(decimal.NewFromInt(75000)))

	// 別ロットは独立した明細になる
	req.LotCode = "2025"
	third, err := engine.Receiving.Receive(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.NotEqual(t, first.BatchNumber, third.BatchNumber)
}

// TestReceiving_LotCodeValidation は受領時のロットコード検証テスト
func TestReceiving_LotCodeValidation(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)

	_, err = engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    10,
		LotCode:     "9925", // 週99は存在しない
	})
	assert.True(t, errors.Is(err, warehouse.ErrInvalidLotCode))
}

// TestReceiving_ExpiryFromLot は有効期限導出のテスト
func TestReceiving_ExpiryFromLot(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	line := receiveStock(t, ctx, engine, "BIN-1", 10)
	require.NotNil(t, line.ExpiryDate)
	// 2025年第15週の月曜日 + 6年
	assert.True(t, line.ExpiryDate.Equal(time.Date(2031, time.April, 7, 0, 0, 0, 0, time.UTC)))

	// 格納された在庫記録にも期限が引き継がれる
	records, err := engine.Ledger.Find(ctx, warehouse.InventoryFilter{ProductID: testProduct})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ExpiryDate)
	assert.True(t, line.ExpiryDate.Equal(*records[0].ExpiryDate))
}

// TestReceiving_PutawayBounds は格納数量上限のテスト
func TestReceiving_PutawayBounds(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)
	line, err := engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    10,
		LotCode:     testLot,
	})
	require.NoError(t, err)

	// 受領数量を超える格納は拒否
	_, err = engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 11)
	assert.Error(t, err)

	// 分割格納は残数量まで許可
	_, err = engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 6)
	require.NoError(t, err)
	result, err := engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.NewQuantity)

	// 残数量ゼロでの追加格納は拒否
	_, err = engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 1)
	assert.Error(t, err)

	// 入荷は完了ステータスになる
	got, err := engine.Receiving.GetReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.ReceiptStatusCompleted, got.Status)
}

// TestReceiving_PutawayCapacityAtomic は格納先収容数超過時の原子性テスト
func TestReceiving_PutawayCapacityAtomic(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)
	line, err := engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    20,
		LotCode:     testLot,
	})
	require.NoError(t, err)

	// BIN-SMALLの上限は10。格納は完全に失敗する
	_, err = engine.Receiving.Putaway(ctx, line.ID, "BIN-SMALL", 20)
	assert.True(t, errors.Is(err, warehouse.ErrCapacityExceeded))

	// 台帳も明細も変化していない
	quantity, err := engine.Ledger.GetQuantity(ctx, stockKey(line, "BIN-SMALL"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), quantity)
	got, err := engine.Receiving.GetReceipt(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.ReceiptStatusPending, got.Status)

	// 失敗した格納は監査に残らない
	audits, err := engine.ListAuditRecords(ctx, warehouse.AuditFilter{ProductID: testProduct})
	require.NoError(t, err)
	assert.Empty(t, audits)
}

// TestReceiving_PutawayTokens は単品格納トークン発行のテスト
func TestReceiving_PutawayTokens(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)
	line, err := engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    5,
		LotCode:     testLot,
	})
	require.NoError(t, err)

	result, err := engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 5)
	require.NoError(t, err)
	assert.Len(t, result.Tokens, 5)
	for _, token := range result.Tokens {
		assert.Equal(t, warehouse.TokenTypePlacement, token.Type)
		assert.Equal(t, line.ID, token.SourceID)
		assert.Equal(t, line.BatchNumber, token.BatchNumber)
	}

	tokens, err := engine.ListUnitTokens(ctx, line.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 5)
}

// TestReceiving_OpenContainer はコンテナ開封遷移のテスト
func TestReceiving_OpenContainer(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)

	// 到着前の開封は拒否
	_, err = engine.Receiving.OpenContainer(ctx, container.ID)
	assert.Error(t, err)

	_, err = engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    5,
		LotCode:     testLot,
	})
	require.NoError(t, err)

	opened, err := engine.Receiving.OpenContainer(ctx, container.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.ContainerStatusProcessing, opened.Status)
}

// TestReceiving_CancelReceipt は入荷キャンセルガードのテスト
func TestReceiving_CancelReceipt(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	// 何も受領していない入荷はキャンセル可能
	empty, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	cancelled, err := engine.Receiving.CancelReceipt(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.ReceiptStatusCancelled, cancelled.Status)

	// キャンセル済み入荷への受領は拒否
	container, err := engine.Receiving.AddContainer(ctx, empty.ID, "CONT-001")
	assert.Error(t, err)
	assert.Nil(t, container)

	// 受領済みの入荷はキャンセル不可
	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-002")
	require.NoError(t, err)
	cont, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-002")
	require.NoError(t, err)
	_, err = engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: cont.ID,
		ProductID:   testProduct,
		Quantity:    5,
		LotCode:     testLot,
	})
	require.NoError(t, err)
	_, err = engine.Receiving.CancelReceipt(ctx, receipt.ID)
	assert.Error(t, err)
}

// TestReceiving_UpdateLineBeforePutaway は格納前明細編集のテスト
func TestReceiving_UpdateLineBeforePutaway(t *testing.T) {
	engine, ctx := newTestEngine(t)
	seedMasterData(t, ctx, engine)

	receipt, err := engine.Receiving.CreateReceipt(ctx, testWarehouse, "PO-001")
	require.NoError(t, err)
	container, err := engine.Receiving.AddContainer(ctx, receipt.ID, "CONT-001")
	require.NoError(t, err)
	line, err := engine.Receiving.Receive(ctx, warehouse.ReceiveRequest{
		ReceiptID:   receipt.ID,
		ContainerID: container.ID,
		ProductID:   testProduct,
		Quantity:    10,
		LotCode:     testLot,
	})
	require.NoError(t, err)

	updated, err := engine.Receiving.UpdateReceivedLine(ctx, line.ID, 12, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), updated.ReceivedQuantity)

	// 格納開始後の編集と削除は拒否
	_, err = engine.Receiving.Putaway(ctx, line.ID, "BIN-1", 4)
	require.NoError(t, err)
	_, err = engine.Receiving.UpdateReceivedLine(ctx, line.ID, 12, 12)
	assert.Error(t, err)
	err = engine.Receiving.DeleteReceivedLine(ctx, line.ID)
	assert.Error(t, err)
}
