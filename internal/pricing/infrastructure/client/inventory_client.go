// Package client 定价上下文访问库存上下文的适配器
package client

import (
	"context"
	"errors"

	inventoryapp "github.com/wyfcoding/smartstock/internal/inventory/application"
	inventory "github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/internal/pricing/domain"
)

// InventoryClient 通过进程内查询服务读取商品快照
type InventoryClient struct {
	queries *inventoryapp.InventoryQueryService
}

// NewInventoryClient 创建库存客户端
func NewInventoryClient(queries *inventoryapp.InventoryQueryService) *InventoryClient {
	return &InventoryClient{queries: queries}
}

// Snapshot 实现 domain.ProductSource
func (c *InventoryClient) Snapshot(ctx context.Context, productID uint) (*domain.ProductSnapshot, error) {
	snap, err := c.queries.ProductSnapshot(ctx, productID)
	if errors.Is(err, inventory.ErrProductNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.ProductSnapshot{
		ProductID:     snap.ProductID,
		Name:          snap.Name,
		CostPrice:     snap.CostPrice,
		SellingPrice:  snap.SellingPrice,
		StockQuantity: snap.StockQuantity,
		UnitsSold:     snap.UnitsSold,
	}, nil
}

var _ domain.ProductSource = (*InventoryClient)(nil)
