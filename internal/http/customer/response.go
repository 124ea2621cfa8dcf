package customer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lebohangm/fakaloan/internal/customer"
)

type customerResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	CellphoneNumber string          `json:"cellphone_number"`
	Address         *string         `json:"address,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	CreditScore     *int            `json:"credit_score,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(c *customer.Customer) customerResponse {
	return customerResponse{
		ID:              c.ID,
		Name:            c.Name,
		CellphoneNumber: c.CellphoneNumber,
		Address:         c.Address,
		Balance:         c.Balance,
		CreditScore:     c.CreditScore,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toResponseList(customers []*customer.Customer) []customerResponse {
	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = toResponse(c)
	}

	return resp
}
