package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceivingPipeline models supplier shipments from receipt through
// containers and received lines down to putaway into storage locations
// 仕入先からの入荷をコンテナ・受領明細・格納まで一貫してモデル化
type ReceivingPipeline struct {
	storage  Storage     // ストレージ層
	ledger   *Ledger     // 在庫台帳
	registry *Registry   // ロケーションレジストリ
	logger   *zap.Logger // ログ
	config   *Config     // 設定
}

// NewReceivingPipeline creates a new receiving pipeline
// 新しい入荷パイプラインを作成
func NewReceivingPipeline(storage Storage, ledger *Ledger, registry *Registry, logger *zap.Logger, config *Config) *ReceivingPipeline {
	if config == nil {
		config = DefaultConfig()
	}
	return &ReceivingPipeline{
		storage:  storage,
		ledger:   ledger,
		registry: registry,
		logger:   logger,
		config:   config,
	}
}

// ReceiveRequest carries the inputs of one receive operation
// 受領操作の入力を保持
type ReceiveRequest struct {
	ReceiptID   string          `json:"receipt_id"`   // 入荷ID
	ContainerID string          `json:"container_id"` // コンテナID
	ProductID   string          `json:"product_id"`   // 商品ID
	Quantity    int64           `json:"quantity"`     // 受領数量
	LotCode     string          `json:"lot_code"`     // ロットコード
	UnitCost    decimal.Decimal `json:"unit_cost"`    // 単価
}

// PutawayResult carries the outputs of one putaway operation
// 格納操作の出力を保持
type PutawayResult struct {
	InventoryID string      `json:"inventory_id"` // 在庫記録ID
	NewQuantity int64       `json:"new_quantity"` // 格納後の数量
	Tokens      []UnitToken `json:"tokens"`       // 単品格納トークン
}

// CreateReceipt opens a new expected supplier shipment
// 新しい入荷予定を作成
func (p *ReceivingPipeline) CreateReceipt(ctx context.Context, warehouseID, supplierRef string) (*Receipt, error) {
	if err := ValidateID("warehouse_id", warehouseID); err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, warehouseID) {
		return nil, NewValidationError("warehouse_id", "倉庫スコープ外の入荷は作成できません", warehouseID)
	}

	receipt := &Receipt{
		ID:          NewID(),
		WarehouseID: warehouseID,
		SupplierRef: supplierRef,
		Status:      ReceiptStatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		CreatedBy:   ActorFromContext(ctx),
	}
	if err := p.storage.CreateReceipt(ctx, receipt); err != nil {
		return nil, NewStorageError("create_receipt", "入荷の作成に失敗しました", err)
	}

	p.logger.Info("入荷作成完了",
		zap.String("receipt_id", receipt.ID),
		zap.String("warehouse_id", warehouseID),
		zap.String("supplier_ref", supplierRef),
	)
	return receipt, nil
}

// AddContainer registers an expected container on a receipt
// 入荷にコンテナを登録
func (p *ReceivingPipeline) AddContainer(ctx context.Context, receiptID, code string) (*Container, error) {
	if err := ValidateID("receipt_id", receiptID); err != nil {
		return nil, err
	}

	var container *Container
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		receipt, err := p.requireOpenReceipt(ctx, st, receiptID)
		if err != nil {
			return err
		}
		container = &Container{
			ID:        NewID(),
			ReceiptID: receipt.ID,
			Code:      code,
			Status:    ContainerStatusExpected,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := st.CreateContainer(ctx, container); err != nil {
			return NewStorageError("create_container", "コンテナの作成に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("コンテナ登録完了",
		zap.String("receipt_id", receiptID),
		zap.String("container_id", container.ID),
		zap.String("code", code),
	)
	return container, nil
}

// Receive records arrived quantity of one product/lot into a container.
// Receiving the same (receipt, container, product, lot) again accumulates
// onto the existing line instead of creating a duplicate.
// 商品・ロット単位の到着数量をコンテナへ記録。同一（入荷・コンテナ・商品・
// ロット）の再受領は明細を複製せず既存明細へ累積する。
func (p *ReceivingPipeline) Receive(ctx context.Context, req ReceiveRequest) (*ReceivedLine, error) {
	if err := ValidateID("receipt_id", req.ReceiptID); err != nil {
		return nil, err
	}
	if err := ValidateID("container_id", req.ContainerID); err != nil {
		return nil, err
	}
	if err := ValidateID("product_id", req.ProductID); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity(req.Quantity); err != nil {
		return nil, err
	}

	var line *ReceivedLine
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		receipt, err := p.requireOpenReceipt(ctx, st, req.ReceiptID)
		if err != nil {
			return err
		}
		container, err := st.GetContainer(ctx, req.ContainerID)
		if err != nil {
			return err
		}
		if container.ReceiptID != receipt.ID {
			return NewValidationError("container_id", "コンテナは指定された入荷に属していません", req.ContainerID)
		}

		product, err := st.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		expiry, err := p.resolveExpiry(product, req.LotCode)
		if err != nil {
			return err
		}

		existing, err := st.FindReceivedLine(ctx, receipt.ID, container.ID, product.ID, req.LotCode)
		if err != nil && !errors.Is(err, ErrReceivedLineNotFound) {
			return NewStorageError("find_received_line", "受領明細の検索に失敗しました", err)
		}

		if existing != nil {
			// 同一ロットの再受領は予定・受領の両数量を累積する
			existing.ExpectedQuantity += req.Quantity
			existing.ReceivedQuantity += req.Quantity
			if !req.UnitCost.IsZero() {
				existing.UnitCost = req.UnitCost
			}
			existing.UpdatedAt = time.Now()
			if err := st.UpdateReceivedLine(ctx, existing); err != nil {
				return NewStorageError("update_received_line", "受領明細の更新に失敗しました", err)
			}
			line = existing
		} else {
			line = &ReceivedLine{
				ID:               NewID(),
				ReceiptID:        receipt.ID,
				ContainerID:      container.ID,
				ProductID:        product.ID,
				BatchNumber:      NewBatchNumber(),
				LotCode:          req.LotCode,
				ExpiryDate:       expiry,
				ExpectedQuantity: req.Quantity,
				ReceivedQuantity: req.Quantity,
				PutawayQuantity:  0,
				UnitCost:         req.UnitCost,
				CreatedAt:        time.Now(),
				UpdatedAt:        time.Now(),
			}
			if err := st.CreateReceivedLine(ctx, line); err != nil {
				return NewStorageError("create_received_line", "受領明細の作成に失敗しました", err)
			}
		}

		return p.recomputeContainerStatus(ctx, st, container)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("受領記録完了",
		zap.String("receipt_id", req.ReceiptID),
		zap.String("container_id", req.ContainerID),
		zap.String("product_id", req.ProductID),
		zap.String("batch_number", line.BatchNumber),
		zap.String("lot_code", req.LotCode),
		zap.Int64("quantity", req.Quantity),
	)
	return line, nil
}

// OpenContainer marks an arrived container as being processed for putaway
// 到着済コンテナを格納処理中として開封
func (p *ReceivingPipeline) OpenContainer(ctx context.Context, containerID string) (*Container, error) {
	if err := ValidateID("container_id", containerID); err != nil {
		return nil, err
	}

	var container *Container
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		container, err = st.GetContainer(ctx, containerID)
		if err != nil {
			return err
		}
		if container.Status != ContainerStatusArrived {
			return NewInvalidTransitionError(string(container.Status), "open_container")
		}
		container.Status = ContainerStatusProcessing
		container.UpdatedAt = time.Now()
		if err := st.UpdateContainer(ctx, container); err != nil {
			return NewStorageError("update_container", "コンテナの更新に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return container, nil
}

// Putaway moves received quantity from a line into a storage location,
// producing the positive ledger adjustment and per-unit placement tokens
// 受領明細の数量を保管ロケーションへ格納し、台帳の正の調整と
// 単品格納トークンを発行
func (p *ReceivingPipeline) Putaway(ctx context.Context, lineID, locationID string, quantity int64) (*PutawayResult, error) {
	if err := ValidateID("line_id", lineID); err != nil {
		return nil, err
	}
	if err := ValidateID("location_id", locationID); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity(quantity); err != nil {
		return nil, err
	}

	result := &PutawayResult{}
	var key InventoryKey
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		line, err := st.GetReceivedLine(ctx, lineID)
		if err != nil {
			return err
		}
		if quantity > line.RemainingPutaway() {
			return NewValidationError("quantity",
				fmt.Sprintf("格納数量が未格納数量（%d）を超えています", line.RemainingPutaway()),
				fmt.Sprintf("%d", quantity))
		}
		receipt, err := p.requireOpenReceipt(ctx, st, line.ReceiptID)
		if err != nil {
			return err
		}

		key = InventoryKey{
			WarehouseID: receipt.WarehouseID,
			ProductID:   line.ProductID,
			LocationID:  locationID,
			BatchNumber: line.BatchNumber,
			LotCode:     line.LotCode,
		}
		newQuantity, err := p.ledger.adjust(ctx, st, key, quantity, AdjustOptions{ExpiryDate: line.ExpiryDate})
		if err != nil {
			return err
		}
		record, err := st.GetInventory(ctx, key)
		if err != nil {
			return NewStorageError("get_inventory", "格納先在庫記録の取得に失敗しました", err)
		}
		result.InventoryID = record.ID
		result.NewQuantity = newQuantity

		// 物理単品ごとに格納トークンを発行する
		result.Tokens = newUnitTokens(TokenTypePlacement, line.ID, key, quantity)
		if err := st.CreateUnitTokens(ctx, result.Tokens); err != nil {
			return NewStorageError("create_unit_tokens", "格納トークンの作成に失敗しました", err)
		}

		line.PutawayQuantity += quantity
		line.UpdatedAt = time.Now()
		if err := st.UpdateReceivedLine(ctx, line); err != nil {
			return NewStorageError("update_received_line", "受領明細の更新に失敗しました", err)
		}

		container, err := st.GetContainer(ctx, line.ContainerID)
		if err != nil {
			return err
		}
		if err := p.recomputeContainerStatus(ctx, st, container); err != nil {
			return err
		}
		return p.recomputeReceiptStatus(ctx, st, receipt)
	})
	if err != nil {
		return nil, err
	}

	appendAudit(ctx, p.storage, p.logger, p.config.AuditEnabled, "putaway", key, quantity, "入荷格納")

	p.logger.Info("格納完了",
		zap.String("line_id", lineID),
		zap.String("location_id", locationID),
		zap.Int64("quantity", quantity),
		zap.Int64("new_quantity", result.NewQuantity),
	)
	return result, nil
}

// UpdateReceivedLine edits the quantities of a line that has not been put away
// 未格納の受領明細の数量を編集
func (p *ReceivingPipeline) UpdateReceivedLine(ctx context.Context, lineID string, expectedQuantity, receivedQuantity int64) (*ReceivedLine, error) {
	if err := ValidateID("line_id", lineID); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity(expectedQuantity); err != nil {
		return nil, err
	}
	if err := ValidatePositiveQuantity(receivedQuantity); err != nil {
		return nil, err
	}

	var line *ReceivedLine
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		line, err = st.GetReceivedLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.PutawayQuantity > 0 {
			return NewInvalidTransitionError("putaway_started", "update_received_line")
		}
		line.ExpectedQuantity = expectedQuantity
		line.ReceivedQuantity = receivedQuantity
		line.UpdatedAt = time.Now()
		if err := st.UpdateReceivedLine(ctx, line); err != nil {
			return NewStorageError("update_received_line", "受領明細の更新に失敗しました", err)
		}
		container, err := st.GetContainer(ctx, line.ContainerID)
		if err != nil {
			return err
		}
		return p.recomputeContainerStatus(ctx, st, container)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteReceivedLine removes a line that has not been put away
// 未格納の受領明細を削除
func (p *ReceivingPipeline) DeleteReceivedLine(ctx context.Context, lineID string) error {
	if err := ValidateID("line_id", lineID); err != nil {
		return err
	}

	return p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		line, err := st.GetReceivedLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.PutawayQuantity > 0 {
			return NewInvalidTransitionError("putaway_started", "delete_received_line")
		}
		if err := st.DeleteReceivedLine(ctx, line.ID); err != nil {
			return NewStorageError("delete_received_line", "受領明細の削除に失敗しました", err)
		}
		container, err := st.GetContainer(ctx, line.ContainerID)
		if err != nil {
			return err
		}
		return p.recomputeContainerStatus(ctx, st, container)
	})
}

// CancelReceipt cancels a receipt that is still pending with nothing received
// 何も受領されていない処理待ちの入荷をキャンセル
func (p *ReceivingPipeline) CancelReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	if err := ValidateID("receipt_id", receiptID); err != nil {
		return nil, err
	}

	var receipt *Receipt
	err := p.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		var err error
		receipt, err = st.GetReceipt(ctx, receiptID)
		if err != nil {
			return err
		}
		if !inWarehouseScope(ctx, receipt.WarehouseID) {
			return ErrReceiptNotFound
		}
		if receipt.Status != ReceiptStatusPending {
			return NewInvalidTransitionError(string(receipt.Status), string(ActionCancel))
		}
		lines, err := st.ListReceivedLinesByReceipt(ctx, receipt.ID)
		if err != nil {
			return NewStorageError("list_received_lines", "受領明細の取得に失敗しました", err)
		}
		for _, line := range lines {
			if line.ReceivedQuantity > 0 {
				return NewInvalidTransitionError("lines_received", string(ActionCancel))
			}
		}
		receipt.Status = ReceiptStatusCancelled
		receipt.UpdatedAt = time.Now()
		if err := st.UpdateReceipt(ctx, receipt); err != nil {
			return NewStorageError("update_receipt", "入荷の更新に失敗しました", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("入荷キャンセル完了", zap.String("receipt_id", receiptID))
	return receipt, nil
}

// GetReceipt retrieves a receipt within the caller's warehouse scope
// 倉庫スコープ内の入荷を取得
func (p *ReceivingPipeline) GetReceipt(ctx context.Context, receiptID string) (*Receipt, error) {
	receipt, err := p.storage.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, receipt.WarehouseID) {
		return nil, ErrReceiptNotFound
	}
	return receipt, nil
}

// ヘルパーメソッド

// requireOpenReceipt loads a receipt and rejects cancelled ones
// 入荷を取得し、キャンセル済みを拒否
func (p *ReceivingPipeline) requireOpenReceipt(ctx context.Context, st Store, receiptID string) (*Receipt, error) {
	receipt, err := st.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if !inWarehouseScope(ctx, receipt.WarehouseID) {
		return nil, ErrReceiptNotFound
	}
	if receipt.Status == ReceiptStatusCancelled {
		return nil, NewInvalidTransitionError(string(receipt.Status), "receive")
	}
	return receipt, nil
}

// resolveExpiry derives the line expiry from the lot code and shelf life
// ロットコードと有効年数から明細の有効期限を導出
func (p *ReceivingPipeline) resolveExpiry(product *Product, lotCode string) (*time.Time, error) {
	shelfLife := product.ShelfLifeYears
	if shelfLife <= 0 {
		shelfLife = p.config.DefaultShelfLifeYears
	}
	return ExpiryFromLotCode(lotCode, shelfLife)
}

// recomputeContainerStatus rewrites a container status from its lines
// 明細からコンテナステータスを再計算
func (p *ReceivingPipeline) recomputeContainerStatus(ctx context.Context, st Store, container *Container) error {
	lines, err := st.ListReceivedLinesByContainer(ctx, container.ID)
	if err != nil {
		return NewStorageError("list_received_lines", "受領明細の取得に失敗しました", err)
	}
	derived := DeriveContainerStatus(container.Status, lines)
	if derived == container.Status {
		return nil
	}
	container.Status = derived
	container.UpdatedAt = time.Now()
	if err := st.UpdateContainer(ctx, container); err != nil {
		return NewStorageError("update_container", "コンテナの更新に失敗しました", err)
	}
	return nil
}

// recomputeReceiptStatus rewrites a receipt status from its lines
// 明細から入荷ステータスを再計算
func (p *ReceivingPipeline) recomputeReceiptStatus(ctx context.Context, st Store, receipt *Receipt) error {
	if receipt.Status == ReceiptStatusCancelled {
		return nil
	}
	lines, err := st.ListReceivedLinesByReceipt(ctx, receipt.ID)
	if err != nil {
		return NewStorageError("list_received_lines", "受領明細の取得に失敗しました", err)
	}
	derived := DeriveReceiptStatus(lines)
	if derived == receipt.Status {
		return nil
	}
	receipt.Status = derived
	receipt.UpdatedAt = time.Now()
	if err := st.UpdateReceipt(ctx, receipt); err != nil {
		return NewStorageError("update_receipt", "入荷の更新に失敗しました", err)
	}
	return nil
}

// newUnitTokens builds one token per physical unit
// 物理単品ごとのトークンを生成
func newUnitTokens(tokenType TokenType, sourceID string, key InventoryKey, quantity int64) []UnitToken {
	tokens := make([]UnitToken, 0, quantity)
	for i := int64(0); i < quantity; i++ {
		tokens = append(tokens, UnitToken{
			ID:          NewID(),
			Type:        tokenType,
			SourceID:    sourceID,
			ProductID:   key.ProductID,
			WarehouseID: key.WarehouseID,
			LocationID:  key.LocationID,
			BatchNumber: key.BatchNumber,
			LotCode:     key.LotCode,
			CreatedAt:   time.Now(),
		})
	}
	return tokens
}
