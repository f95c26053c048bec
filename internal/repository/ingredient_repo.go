package repository

import (
	"strings"

	"bakery-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IngredientRepository interface {
	WithTx(tx *gorm.DB) IngredientRepository
	Create(ing *model.Ingredient) error
	Save(ing *model.Ingredient) error
	Delete(id uuid.UUID) error
	FindAll(nameFilter string) ([]model.Ingredient, error)
	FindByID(id uuid.UUID) (*model.Ingredient, error)
	FindByName(name string) (*model.Ingredient, error)
	LockForUpdate(ids []uuid.UUID) ([]model.Ingredient, error)
	AdjustUnits(id uuid.UUID, delta float64) error
}

type ingredientRepo struct {
	db *gorm.DB
}

func NewIngredientRepo(db *gorm.DB) IngredientRepository {
	return &ingredientRepo{db}
}

// WithTx binds the repository to a transaction (or a context-scoped session)
func (r *ingredientRepo) WithTx(tx *gorm.DB) IngredientRepository {
	return &ingredientRepo{tx}
}

func (r *ingredientRepo) Create(ing *model.Ingredient) error {
	return errors.Wrap(r.db.Create(ing).Error, "create ingredient")
}

func (r *ingredientRepo) Save(ing *model.Ingredient) error {
	return errors.Wrap(r.db.Save(ing).Error, "save ingredient")
}

func (r *ingredientRepo) Delete(id uuid.UUID) error {
	return errors.Wrap(r.db.Delete(&model.Ingredient{}, "id = ?", id).Error, "delete ingredient")
}

func (r *ingredientRepo) FindAll(nameFilter string) ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	q := r.db.Order("name ASC")
	if f := strings.ToLower(strings.TrimSpace(nameFilter)); f != "" {
		q = q.Where("name LIKE ?", likePattern(f))
	}
	err := q.Find(&ingredients).Error
	return ingredients, errors.Wrap(err, "list ingredients")
}

func (r *ingredientRepo) FindByID(id uuid.UUID) (*model.Ingredient, error) {
	var ing model.Ingredient
	if err := r.db.First(&ing, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "ingredient")
	}
	return &ing, nil
}

func (r *ingredientRepo) FindByName(name string) (*model.Ingredient, error) {
	var ing model.Ingredient
	if err := r.db.First(&ing, "name = ?", name).Error; err != nil {
		return nil, lookupErr(err, "ingredient")
	}
	return &ing, nil
}

// LockForUpdate reads the rows with SELECT ... FOR UPDATE in id order.
// Dialects without row locks (sqlite) ignore the clause.
func (r *ingredientRepo) LockForUpdate(ids []uuid.UUID) ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&ingredients).Error
	return ingredients, errors.Wrap(err, "lock ingredients")
}

// AdjustUnits increments units_on_hand in the store so concurrent writers
// never overwrite each other's deltas.
func (r *ingredientRepo) AdjustUnits(id uuid.UUID, delta float64) error {
	err := r.db.Model(&model.Ingredient{}).
		Where("id = ?", id).
		Update("units_on_hand", gorm.Expr("units_on_hand + ?", delta)).Error
	return errors.Wrap(err, "adjust ingredient units")
}
