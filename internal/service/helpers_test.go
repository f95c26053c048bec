package service

import (
	"context"
	"sync"
	"testing"

	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/database"
	"bakery-backoffice/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordedEvent struct {
	name    string
	payload interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, payload})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	db          *gorm.DB
	ingredients IngredientService
	recipes     RecipeService
	orders      OrderService
	events      *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	iRepo := repository.NewIngredientRepo(db)
	rRepo := repository.NewRecipeRepo(db)
	oRepo := repository.NewOrderRepo(db)
	log := logger.Nop()
	events := &recorder{}

	return &fixture{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		ingredients: NewIngredientService(iRepo, rRepo, oRepo, db, log),
		recipes:     NewRecipeService(iRepo, rRepo, oRepo, db, log),
		orders:      NewOrderService(iRepo, rRepo, oRepo, db, events, log),
		events:      events,
	}
}

func fptr(v float64) *float64 { return &v }

// flour: 200 bags of 100 g priced 50 in total.
func (f *fixture) flour() *model.Ingredient {
	return f.ingredient(CreateIngredientInput{
		Name:                  "Flour",
		UnitsOnHand:           200,
		WeightOrVolumePerUnit: fptr(100),
		BaseUnit:              "g",
		CostPrice:             decimal.NewFromInt(50),
		Category:              "dry goods",
	})
}

func (f *fixture) eggs(units float64) *model.Ingredient {
	return f.ingredient(CreateIngredientInput{
		Name:        "Eggs",
		UnitsOnHand: units,
		BaseUnit:    "un",
		CostPrice:   decimal.NewFromInt(12),
		Category:    "fresh",
	})
}

func (f *fixture) milk() *model.Ingredient {
	return f.ingredient(CreateIngredientInput{
		Name:                  "Milk",
		UnitsOnHand:           10,
		WeightOrVolumePerUnit: fptr(1),
		BaseUnit:              "l",
		CostPrice:             decimal.NewFromInt(40),
		Category:              "fresh",
	})
}

func (f *fixture) ingredient(in CreateIngredientInput) *model.Ingredient {
	f.t.Helper()
	ing, err := f.ingredients.CreateIngredient(f.ctx, in)
	require.NoError(f.t, err)
	return ing
}

func (f *fixture) recipe(name string, items ...RecipeIngredientInput) *model.Recipe {
	f.t.Helper()
	r, err := f.recipes.CreateRecipe(f.ctx, CreateRecipeInput{Name: name, Yield: "1 batch", Ingredients: items})
	require.NoError(f.t, err)
	return r
}

func uses(ing *model.Ingredient, qty float64, unit string) RecipeIngredientInput {
	return RecipeIngredientInput{IngredientID: ing.ID, Quantity: qty, Unit: unit}
}

func (f *fixture) order(lines ...LineInput) *model.Order {
	f.t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{CustomerName: "Ana", Lines: lines})
	require.NoError(f.t, err)
	return o
}

func line(r *model.Recipe, qty int) LineInput {
	return LineInput{RecipeID: r.ID, Quantity: qty}
}

func (f *fixture) unitsOf(ing *model.Ingredient) float64 {
	f.t.Helper()
	got, err := f.ingredients.GetIngredient(f.ctx, ing.ID)
	require.NoError(f.t, err)
	return got.UnitsOnHand
}

func senior() model.Caller { return model.Caller{UserID: "u1", Role: model.RoleSupervisorSenior} }
func junior() model.Caller { return model.Caller{UserID: "u2", Role: model.RoleSupervisorJunior} }
func staff() model.Caller  { return model.Caller{UserID: "u3", Role: model.RoleStaff} }
