package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/billing/internal/domain/ledger"
	"github.com/orris-inc/billing/internal/domain/order"
	"github.com/orris-inc/billing/internal/infrastructure/persistence/models"
)

type OrderMapper interface {
	ToEntity(model *models.OrderModel) (*order.Order, error)
	ToModel(entity *order.Order) (*models.OrderModel, error)
}

type OrderMapperImpl struct{}

func NewOrderMapper() OrderMapper {
	return &OrderMapperImpl{}
}

func (m *OrderMapperImpl) ToEntity(model *models.OrderModel) (*order.Order, error) {
	if model == nil {
		return nil, nil
	}

	gateway, err := ledger.ParseGatewayName(model.PaymentGateway)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", model.ID, err)
	}

	amount, err := moneyFromColumns(model.AmountMinor, model.Currency)
	if err != nil {
		return nil, fmt.Errorf("order %d amount: %w", model.ID, err)
	}

	var metadata map[string]any
	if len(model.GatewayMetadata) > 0 {
		if err := json.Unmarshal(model.GatewayMetadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal gateway metadata: %w", err)
		}
	}

	return order.ReconstructOrder(model.ID, model.OrderNo, model.SubscriptionID, model.UserID,
		order.Status(model.Status), gateway, metadata, amount, model.Reference, model.TransactionID, model.CreatedAt)
}

func (m *OrderMapperImpl) ToModel(entity *order.Order) (*models.OrderModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if metadata := entity.Metadata(); len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal gateway metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.OrderModel{
		ID:              entity.ID(),
		OrderNo:         entity.OrderNo(),
		SubscriptionID:  entity.SubscriptionID(),
		UserID:          entity.UserID(),
		Status:          entity.Status().String(),
		PaymentGateway:  entity.Gateway().String(),
		GatewayMetadata: metadataJSON,
		AmountMinor:     entity.Amount().Minor(),
		Currency:        entity.Amount().Currency().String(),
		Reference:       entity.Reference(),
		TransactionID:   entity.TransactionID(),
		CreatedAt:       entity.CreatedAt(),
	}, nil
}
