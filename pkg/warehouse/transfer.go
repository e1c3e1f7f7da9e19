package warehouse

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// TransferOrchestrator moves stock between locations as paired ledger
// adjustments inside a single transaction, so every transfer is zero-sum
// 在庫移動を単一トランザクション内の対になった台帳調整として実行し、
// すべての移動をゼロサムに保つ
type TransferOrchestrator struct {
	storage Storage     // ストレージ層
	ledger  *Ledger     // 在庫台帳
	logger  *zap.Logger // ログ
	config  *Config     // 設定
}

// NewTransferOrchestrator creates a new transfer orchestrator
// 新しい在庫移動オーケストレータを作成
func NewTransferOrchestrator(storage Storage, ledger *Ledger, logger *zap.Logger, config *Config) *TransferOrchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	return &TransferOrchestrator{
		storage: storage,
		ledger:  ledger,
		logger:  logger,
		config:  config,
	}
}

// TransferLineRequest describes one quantity move from a source ledger key
// to a destination location
// 移動元台帳キーから移動先ロケーションへの数量移動を記述
type TransferLineRequest struct {
	ProductID         string `json:"product_id"`          // 商品ID
	SourceWarehouseID string `json:"source_warehouse_id"` // 移動元倉庫ID
	SourceLocationID  string `json:"source_location_id"`  // 移動元ロケーション
	DestWarehouseID   string `json:"dest_warehouse_id"`   // 移動先倉庫ID
	DestLocationID    string `json:"dest_location_id"`    // 移動先ロケーション
	BatchNumber       string `json:"batch_number"`        // バッチ番号
	LotCode           string `json:"lot_code"`            // ロットコード
	Quantity          int64  `json:"quantity"`            // 移動数量
}

// Transfer executes every line as a subtract-then-add pair at the same batch
// and lot. Either all lines commit or none do. The destination record carries
// the source record's expiry date.
// すべての明細を同一バッチ・ロットでの出庫+入庫のペアとして実行する。
// 全明細がコミットされるか、全く反映されないかのいずれか。
// 移動先レコードは移動元レコードの有効期限を引き継ぐ。
func (t *TransferOrchestrator) Transfer(ctx context.Context, reference string, lines []TransferLineRequest) (*TransferOrder, error) {
	if len(lines) == 0 {
		return nil, NewValidationError("lines", "移動明細が1件以上必要です", "")
	}
	for _, line := range lines {
		if err := ValidatePositiveQuantity(line.Quantity); err != nil {
			return nil, err
		}
		if line.SourceWarehouseID == line.DestWarehouseID && line.SourceLocationID == line.DestLocationID {
			return nil, NewValidationError("dest_location_id", "移動元と移動先が同一です", line.DestLocationID)
		}
	}

	var transfer *TransferOrder
	err := t.storage.Transact(ctx, func(ctx context.Context, st Store) error {
		transfer = &TransferOrder{
			ID:        NewID(),
			Reference: reference,
			Status:    TransferStatusCompleted,
			CreatedAt: time.Now(),
			CreatedBy: ActorFromContext(ctx),
		}
		if err := st.CreateTransferOrder(ctx, transfer); err != nil {
			return NewStorageError("create_transfer", "在庫移動の作成に失敗しました", err)
		}

		for _, req := range lines {
			sourceKey := InventoryKey{
				WarehouseID: req.SourceWarehouseID,
				ProductID:   req.ProductID,
				LocationID:  req.SourceLocationID,
				BatchNumber: req.BatchNumber,
				LotCode:     req.LotCode,
			}
			destKey := InventoryKey{
				WarehouseID: req.DestWarehouseID,
				ProductID:   req.ProductID,
				LocationID:  req.DestLocationID,
				BatchNumber: req.BatchNumber,
				LotCode:     req.LotCode,
			}

			// 出庫前に移動元レコードの有効期限を退避
			var expiry *time.Time
			record, err := st.GetInventory(ctx, sourceKey)
			if err != nil && !errors.Is(err, ErrRecordNotFound) {
				return NewStorageError("get_inventory", "在庫記録の取得に失敗しました", err)
			}
			if record != nil {
				expiry = record.ExpiryDate
			}

			if _, err := t.ledger.adjust(ctx, st, sourceKey, -req.Quantity, AdjustOptions{}); err != nil {
				return err
			}
			if _, err := t.ledger.adjust(ctx, st, destKey, req.Quantity, AdjustOptions{ExpiryDate: expiry}); err != nil {
				return err
			}

			line := &TransferLine{
				ID:                NewID(),
				TransferOrderID:   transfer.ID,
				ProductID:         req.ProductID,
				SourceWarehouseID: req.SourceWarehouseID,
				SourceLocationID:  req.SourceLocationID,
				DestWarehouseID:   req.DestWarehouseID,
				DestLocationID:    req.DestLocationID,
				BatchNumber:       req.BatchNumber,
				LotCode:           req.LotCode,
				Quantity:          req.Quantity,
			}
			if err := st.CreateTransferLine(ctx, line); err != nil {
				return NewStorageError("create_transfer_line", "移動明細の作成に失敗しました", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, req := range lines {
		sourceKey := InventoryKey{
			WarehouseID: req.SourceWarehouseID,
			ProductID:   req.ProductID,
			LocationID:  req.SourceLocationID,
			BatchNumber: req.BatchNumber,
			LotCode:     req.LotCode,
		}
		destKey := InventoryKey{
			WarehouseID: req.DestWarehouseID,
			ProductID:   req.ProductID,
			LocationID:  req.DestLocationID,
			BatchNumber: req.BatchNumber,
			LotCode:     req.LotCode,
		}
		appendAudit(ctx, t.storage, t.logger, t.config.AuditEnabled, "transfer_out", sourceKey, -req.Quantity, "在庫移動 "+transfer.ID)
		appendAudit(ctx, t.storage, t.logger, t.config.AuditEnabled, "transfer_in", destKey, req.Quantity, "在庫移動 "+transfer.ID)
	}

	t.logger.Info("在庫移動完了",
		zap.String("transfer_id", transfer.ID),
		zap.String("reference", reference),
		zap.Int("lines", len(lines)),
	)
	return transfer, nil
}

// GetTransfer retrieves a transfer order with its lines
// 在庫移動とその明細を取得
func (t *TransferOrchestrator) GetTransfer(ctx context.Context, transferID string) (*TransferOrder, []TransferLine, error) {
	if err := ValidateID("transfer_id", transferID); err != nil {
		return nil, nil, err
	}
	transfer, err := t.storage.GetTransferOrder(ctx, transferID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := t.storage.ListTransferLines(ctx, transferID)
	if err != nil {
		return nil, nil, NewStorageError("list_transfer_lines", "移動明細の取得に失敗しました", err)
	}
	return transfer, lines, nil
}
