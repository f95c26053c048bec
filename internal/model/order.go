package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending       OrderStatus = "PENDING"
	StatusInPreparation OrderStatus = "IN_PREPARATION"
	StatusCompleted     OrderStatus = "COMPLETED"
	StatusCanceled      OrderStatus = "CANCELED"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:       {StatusInPreparation, StatusCanceled},
	StatusInPreparation: {StatusCompleted, StatusCanceled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInPreparation, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal statuses accept no composition edits and no status changes.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// HoldsStock reports whether the order's lines are still deducted from
// stock. Canceled orders have already been restituted.
func (s OrderStatus) HoldsStock() bool {
	return s != StatusCanceled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	BaseModel
	CustomerName string          `gorm:"type:varchar(255);index;not null" json:"customer_name"`
	TotalValue   decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"total_value"`
	Status       OrderStatus     `gorm:"type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	Lines        []OrderRecipe   `gorm:"foreignKey:OrderID" json:"lines"`
}

// OrderRecipe is one line of an order: a recipe and how many of it.
type OrderRecipe struct {
	OrderID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"order_id"`
	RecipeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"recipe_id"`
	Quantity int       `gorm:"not null" json:"quantity"`
	Recipe   Recipe    `gorm:"foreignKey:RecipeID" json:"recipe"`
}

func (o *Order) Line(recipeID uuid.UUID) (*OrderRecipe, bool) {
	for i := range o.Lines {
		if o.Lines[i].RecipeID == recipeID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}
