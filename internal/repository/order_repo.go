package repository

import (
	"strings"

	"bakery-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(order *model.Order) error
	Save(order *model.Order) error
	Delete(id uuid.UUID) error
	FindAll(customerFilter string) ([]model.Order, error)
	FindByID(id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(id uuid.UUID) (*model.Order, error)
	FindByRecipe(recipeID uuid.UUID) ([]model.Order, error)
	CreateLines(lines []model.OrderRecipe) error
	UpdateLineQuantity(orderID, recipeID uuid.UUID, qty int) error
	DeleteLine(orderID, recipeID uuid.UUID) error
	DeleteLines(orderID uuid.UUID) error
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepo{tx}
}

// preloaded loads every line with its recipe, links and ingredients, which
// is what the ledger needs to plan movements.
func (r *orderRepo) preloaded() *gorm.DB {
	return r.db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("recipe_id ASC")
	}).Preload("Lines.Recipe.Ingredients.Ingredient")
}

func (r *orderRepo) Create(order *model.Order) error {
	return errors.Wrap(r.db.Omit(clause.Associations).Create(order).Error, "create order")
}

func (r *orderRepo) Save(order *model.Order) error {
	return errors.Wrap(r.db.Omit(clause.Associations).Save(order).Error, "save order")
}

func (r *orderRepo) Delete(id uuid.UUID) error {
	if err := r.DeleteLines(id); err != nil {
		return err
	}
	return errors.Wrap(r.db.Delete(&model.Order{}, "id = ?", id).Error, "delete order")
}

func (r *orderRepo) FindAll(customerFilter string) ([]model.Order, error) {
	var orders []model.Order
	q := r.db.Preload("Lines").Preload("Lines.Recipe").Order("created_at DESC")
	if f := strings.ToLower(strings.TrimSpace(customerFilter)); f != "" {
		q = q.Where("customer_name LIKE ?", likePattern(f))
	}
	err := q.Find(&orders).Error
	return orders, errors.Wrap(err, "list orders")
}

func (r *orderRepo) FindByID(id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.preloaded().First(&order, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "order")
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row before loading it, serialising
// concurrent edits of the same order.
func (r *orderRepo) FindByIDForUpdate(id uuid.UUID) (*model.Order, error) {
	var locked model.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, "id = ?", id).Error
	if err != nil {
		return nil, lookupErr(err, "order")
	}
	return r.FindByID(id)
}

func (r *orderRepo) FindByRecipe(recipeID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := r.preloaded().
		Where("id IN (?)", r.db.Model(&model.OrderRecipe{}).Select("order_id").Where("recipe_id = ?", recipeID)).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, errors.Wrap(err, "find orders by recipe")
}

func (r *orderRepo) CreateLines(lines []model.OrderRecipe) error {
	if len(lines) == 0 {
		return nil
	}
	return errors.Wrap(r.db.Omit(clause.Associations).Create(&lines).Error, "create order lines")
}

func (r *orderRepo) UpdateLineQuantity(orderID, recipeID uuid.UUID, qty int) error {
	err := r.db.Model(&model.OrderRecipe{}).
		Where("order_id = ? AND recipe_id = ?", orderID, recipeID).
		Update("quantity", qty).Error
	return errors.Wrap(err, "update order line")
}

func (r *orderRepo) DeleteLine(orderID, recipeID uuid.UUID) error {
	err := r.db.Where("order_id = ? AND recipe_id = ?", orderID, recipeID).Delete(&model.OrderRecipe{}).Error
	return errors.Wrap(err, "delete order line")
}

func (r *orderRepo) DeleteLines(orderID uuid.UUID) error {
	err := r.db.Where("order_id = ?", orderID).Delete(&model.OrderRecipe{}).Error
	return errors.Wrap(err, "delete order lines")
}
