package warehouse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNextOrderStatus_Allowed は許可された明示的遷移のテスト
func TestNextOrderStatus_Allowed(t *testing.T) {
	tests := []struct {
		from   OrderStatus
		action OrderAction
		want   OrderStatus
	}{
		{OrderStatusNew, ActionCancel, OrderStatusCancelled},
		{OrderStatusPendingPick, ActionCancel, OrderStatusCancelled},
		{OrderStatusPartiallyPicked, ActionStage, OrderStatusReadyForPickup},
		{OrderStatusPicked, ActionStage, OrderStatusReadyForPickup},
		{OrderStatusPicked, ActionShip, OrderStatusShipped},
		{OrderStatusReadyForPickup, ActionAssignDriver, OrderStatusAssigned},
		{OrderStatusAssigned, ActionShip, OrderStatusShipped},
		{OrderStatusShipped, ActionMarkOutForDelivery, OrderStatusOutForDelivery},
		{OrderStatusShipped, ActionMarkDelivered, OrderStatusDelivered},
		{OrderStatusOutForDelivery, ActionMarkDelivered, OrderStatusDelivered},
	}
	for _, tt := range tests {
		got, err := NextOrderStatus(tt.from, tt.action)
		assert.NoError(t, err, "%s + %s", tt.from, tt.action)
		assert.Equal(t, tt.want, got)
	}
}

// TestNextOrderStatus_Rejected は許可されない遷移の拒否テスト
func TestNextOrderStatus_Rejected(t *testing.T) {
	tests := []struct {
		from   OrderStatus
		action OrderAction
	}{
		{OrderStatusShipped, ActionCancel},        // 出荷後のキャンセル不可
		{OrderStatusOutForDelivery, ActionCancel}, // 配達中のキャンセル不可
		{OrderStatusDelivered, ActionShip},
		{OrderStatusCancelled, ActionStage},
		{OrderStatusNew, ActionShip},
		{OrderStatusPendingPick, ActionStage}, // 未ピックのステージング不可
		{OrderStatusReturned, ActionCancel},
	}
	for _, tt := range tests {
		_, err := NextOrderStatus(tt.from, tt.action)
		assert.Error(t, err, "%s + %s", tt.from, tt.action)
		var domainErr *DomainError
		if assert.True(t, errors.As(err, &domainErr)) {
			assert.Equal(t, KindInvalidStateTransition, domainErr.Kind)
		}
	}
}

// TestDeriveOrderPickStatus は明細集計からの導出ステータステスト
func TestDeriveOrderPickStatus(t *testing.T) {
	assert.Equal(t, OrderStatusNew, DeriveOrderPickStatus(nil))

	lines := []OrderLine{
		{OrderedQuantity: 4, PickedQuantity: 0},
		{OrderedQuantity: 2, PickedQuantity: 0},
	}
	assert.Equal(t, OrderStatusPendingPick, DeriveOrderPickStatus(lines))

	lines[0].PickedQuantity = 3
	assert.Equal(t, OrderStatusPartiallyPicked, DeriveOrderPickStatus(lines))

	lines[0].PickedQuantity = 4
	lines[1].PickedQuantity = 2
	assert.Equal(t, OrderStatusPicked, DeriveOrderPickStatus(lines))
}

// TestOrderStatus_IsPreShipment は出荷前判定のテスト
func TestOrderStatus_IsPreShipment(t *testing.T) {
	pre := []OrderStatus{
		OrderStatusNew, OrderStatusPendingPick, OrderStatusPartiallyPicked,
		OrderStatusPicked, OrderStatusReadyForPickup, OrderStatusAssigned,
	}
	for _, s := range pre {
		assert.True(t, s.IsPreShipment(), string(s))
	}
	post := []OrderStatus{
		OrderStatusShipped, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusPartiallyReturned, OrderStatusReturned, OrderStatusCancelled,
	}
	for _, s := range post {
		assert.False(t, s.IsPreShipment(), string(s))
	}
}

// TestOrderStatus_CanCreateReturn は返品開始可能判定のテスト
func TestOrderStatus_CanCreateReturn(t *testing.T) {
	assert.True(t, OrderStatusShipped.CanCreateReturn())
	assert.True(t, OrderStatusDelivered.CanCreateReturn())
	assert.True(t, OrderStatusPartiallyReturned.CanCreateReturn())

	assert.False(t, OrderStatusPicked.CanCreateReturn())
	assert.False(t, OrderStatusCancelled.CanCreateReturn())
	assert.False(t, OrderStatusReturned.CanCreateReturn())
}

// TestDeriveContainerStatus はコンテナステータス導出のテスト
func TestDeriveContainerStatus(t *testing.T) {
	assert.Equal(t, ContainerStatusExpected, DeriveContainerStatus(ContainerStatusExpected, nil))

	lines := []ReceivedLine{{ReceivedQuantity: 10, PutawayQuantity: 0}}
	assert.Equal(t, ContainerStatusArrived, DeriveContainerStatus(ContainerStatusExpected, lines))

	// 開封済みマーカーは格納開始まで保持される
	assert.Equal(t, ContainerStatusProcessing, DeriveContainerStatus(ContainerStatusProcessing, lines))

	lines[0].PutawayQuantity = 4
	assert.Equal(t, ContainerStatusPartiallyPutaway, DeriveContainerStatus(ContainerStatusProcessing, lines))

	lines[0].PutawayQuantity = 10
	assert.Equal(t, ContainerStatusCompleted, DeriveContainerStatus(ContainerStatusPartiallyPutaway, lines))
}

// TestDeriveReceiptStatus は入荷ステータス導出のテスト
func TestDeriveReceiptStatus(t *testing.T) {
	lines := []ReceivedLine{
		{ReceivedQuantity: 10, PutawayQuantity: 0},
		{ReceivedQuantity: 5, PutawayQuantity: 0},
	}
	assert.Equal(t, ReceiptStatusPending, DeriveReceiptStatus(lines))

	lines[0].PutawayQuantity = 10
	assert.Equal(t, ReceiptStatusPartiallyPutaway, DeriveReceiptStatus(lines))

	lines[1].PutawayQuantity = 5
	assert.Equal(t, ReceiptStatusCompleted, DeriveReceiptStatus(lines))
}
