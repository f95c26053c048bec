package repository

import (
	"strings"

	"bakery-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecipeRepository interface {
	WithTx(tx *gorm.DB) RecipeRepository
	Create(recipe *model.Recipe) error
	Save(recipe *model.Recipe) error
	UpdateCost(id uuid.UUID, cost decimal.NullDecimal) error
	Delete(id uuid.UUID) error
	FindAll(nameFilter string) ([]model.Recipe, error)
	FindByID(id uuid.UUID) (*model.Recipe, error)
	FindByName(name string) (*model.Recipe, error)
	FindByIngredient(ingredientID uuid.UUID) ([]model.Recipe, error)
	ReplaceLinks(recipeID uuid.UUID, links []model.RecipeIngredient) error
	CreateLink(link *model.RecipeIngredient) error
	UpdateLink(link *model.RecipeIngredient) error
	DeleteLink(recipeID, ingredientID uuid.UUID) error
}

type recipeRepo struct {
	db *gorm.DB
}

func NewRecipeRepo(db *gorm.DB) RecipeRepository {
	return &recipeRepo{db}
}

func (r *recipeRepo) WithTx(tx *gorm.DB) RecipeRepository {
	return &recipeRepo{tx}
}

func (r *recipeRepo) preloaded() *gorm.DB {
	return r.db.Preload("Ingredients.Ingredient")
}

// Create inserts the recipe row only; links go through ReplaceLinks.
func (r *recipeRepo) Create(recipe *model.Recipe) error {
	return errors.Wrap(r.db.Omit(clause.Associations).Create(recipe).Error, "create recipe")
}

func (r *recipeRepo) Save(recipe *model.Recipe) error {
	return errors.Wrap(r.db.Omit(clause.Associations).Save(recipe).Error, "save recipe")
}

func (r *recipeRepo) UpdateCost(id uuid.UUID, cost decimal.NullDecimal) error {
	err := r.db.Model(&model.Recipe{}).Where("id = ?", id).Update("production_cost", cost).Error
	return errors.Wrap(err, "update recipe cost")
}

// Delete removes the recipe and its ingredient links. Order lines must be
// gone already.
func (r *recipeRepo) Delete(id uuid.UUID) error {
	if err := r.db.Where("recipe_id = ?", id).Delete(&model.RecipeIngredient{}).Error; err != nil {
		return errors.Wrap(err, "delete recipe links")
	}
	return errors.Wrap(r.db.Delete(&model.Recipe{}, "id = ?", id).Error, "delete recipe")
}

func (r *recipeRepo) FindAll(nameFilter string) ([]model.Recipe, error) {
	var recipes []model.Recipe
	q := r.preloaded().Order("name ASC")
	if f := strings.ToLower(strings.TrimSpace(nameFilter)); f != "" {
		q = q.Where("name LIKE ?", likePattern(f))
	}
	err := q.Find(&recipes).Error
	return recipes, errors.Wrap(err, "list recipes")
}

func (r *recipeRepo) FindByID(id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := r.preloaded().First(&recipe, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "recipe")
	}
	return &recipe, nil
}

func (r *recipeRepo) FindByName(name string) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := r.db.First(&recipe, "name = ?", name).Error; err != nil {
		return nil, lookupErr(err, "recipe")
	}
	return &recipe, nil
}

func (r *recipeRepo) FindByIngredient(ingredientID uuid.UUID) ([]model.Recipe, error) {
	var recipes []model.Recipe
	err := r.preloaded().
		Where("id IN (?)", r.db.Model(&model.RecipeIngredient{}).Select("recipe_id").Where("ingredient_id = ?", ingredientID)).
		Order("name ASC").
		Find(&recipes).Error
	return recipes, errors.Wrap(err, "find recipes by ingredient")
}

func (r *recipeRepo) ReplaceLinks(recipeID uuid.UUID, links []model.RecipeIngredient) error {
	if err := r.db.Where("recipe_id = ?", recipeID).Delete(&model.RecipeIngredient{}).Error; err != nil {
		return errors.Wrap(err, "clear recipe links")
	}
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].RecipeID = recipeID
	}
	return errors.Wrap(r.db.Omit(clause.Associations).Create(&links).Error, "create recipe links")
}

func (r *recipeRepo) CreateLink(link *model.RecipeIngredient) error {
	return errors.Wrap(r.db.Omit(clause.Associations).Create(link).Error, "create recipe link")
}

func (r *recipeRepo) UpdateLink(link *model.RecipeIngredient) error {
	err := r.db.Model(&model.RecipeIngredient{}).
		Where("recipe_id = ? AND ingredient_id = ?", link.RecipeID, link.IngredientID).
		Updates(map[string]interface{}{
			"count_quantity":          link.CountQuantity,
			"mass_or_volume_quantity": link.MassOrVolumeQuantity,
		}).Error
	return errors.Wrap(err, "update recipe link")
}

func (r *recipeRepo) DeleteLink(recipeID, ingredientID uuid.UUID) error {
	err := r.db.Where("recipe_id = ? AND ingredient_id = ?", recipeID, ingredientID).Delete(&model.RecipeIngredient{}).Error
	return errors.Wrap(err, "delete recipe link")
}
