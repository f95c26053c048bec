package service

import (
	"strings"
	"testing"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/ledger"
	"bakery-backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderConsumesStock(t *testing.T) {
	f := newFixture(t)
	flour := f.flour()
	cake := f.recipe("cake", uses(flour, 25, "g"))

	order := f.order(line(cake, 2))

	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, "ana", order.CustomerName)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	// 25 g of 20000 g priced 50 is 0.0625 per cake
	assert.True(t, decimal.RequireFromString("0.125").Equal(order.TotalValue), "got %s", order.TotalValue)
	assert.InDelta(t, 199.5, f.unitsOf(flour), 1e-9)
	assert.Equal(t, []string{EventOrderCreated}, f.events.names())
}

func TestCreateOrderCountShortfall(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(1)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{CustomerName: "Ana", Lines: []LineInput{line(omelette, 1)}})
	require.True(t, apperr.Is(err, apperr.KindInsufficientStock), "got %v", err)

	sf := ledger.Shortfalls(err)
	require.Len(t, sf, 1)
	assert.Equal(t, "eggs", sf[0].Ingredient)
	assert.Equal(t, 2.0, sf[0].Needed)
	assert.Equal(t, 1.0, sf[0].OnHand)
	assert.Equal(t, 1.0, sf[0].Short)

	assert.Equal(t, 1.0, f.unitsOf(eggs))
	orders, err := f.orders.ListOrders(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.names())
}

func TestCreateOrderAccumulatesDemandAcrossLines(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(4)
	flour := f.flour()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	quiche := f.recipe("quiche", uses(eggs, 3, "un"), uses(flour, 0.1, "kg"))

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{
		CustomerName: "Ana",
		Lines:        []LineInput{line(omelette, 1), line(quiche, 1)},
	})

	sf := ledger.Shortfalls(err)
	require.Len(t, sf, 1)
	assert.Equal(t, eggs.ID, sf[0].IngredientID)
	assert.Equal(t, 1.0, sf[0].Short)
	assert.Equal(t, 4.0, f.unitsOf(eggs))
	assert.Equal(t, 200.0, f.unitsOf(flour))
}

func TestCreateOrderMergesRepeatedRecipes(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))

	order := f.order(line(omelette, 1), line(omelette, 2))

	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.Equal(t, 4.0, f.unitsOf(eggs))
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))

	tests := []struct {
		name string
		in   CreateOrderInput
		kind apperr.Kind
	}{
		{"blank customer", CreateOrderInput{CustomerName: "  ", Lines: []LineInput{line(omelette, 1)}}, apperr.KindValidation},
		{"no lines", CreateOrderInput{CustomerName: "Ana"}, apperr.KindValidation},
		{"zero quantity", CreateOrderInput{CustomerName: "Ana", Lines: []LineInput{line(omelette, 0)}}, apperr.KindValidation},
		{"unknown recipe", CreateOrderInput{CustomerName: "Ana", Lines: []LineInput{{RecipeID: uuid.New(), Quantity: 1}}}, apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(f.ctx, tt.in)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
		})
	}
	assert.Equal(t, 10.0, f.unitsOf(eggs))
}

func TestCreateOrderRequiresRecipeCost(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	require.NoError(t, f.db.Model(&model.Recipe{}).Where("id = ?", omelette.ID).Update("production_cost", nil).Error)

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{CustomerName: "Ana", Lines: []LineInput{line(omelette, 1)}})
	assert.True(t, apperr.Is(err, apperr.KindRecipeCostUndefined), "got %v", err)
}

func TestReplaceCompositionChecksAgainstReleasedStock(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(4)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	order := f.order(line(omelette, 2))
	require.Equal(t, 0.0, f.unitsOf(eggs))

	name := "Bruno"
	updated, err := f.orders.ReplaceComposition(f.ctx, order.ID, ReplaceOrderInput{CustomerName: &name, Lines: []LineInput{line(omelette, 1)}})
	require.NoError(t, err)
	assert.Equal(t, "bruno", updated.CustomerName)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 1, updated.Lines[0].Quantity)
	assert.Equal(t, 2.0, f.unitsOf(eggs))

	// three omelettes need six eggs; the shortfall rolls back the release too
	_, err = f.orders.ReplaceComposition(f.ctx, order.ID, ReplaceOrderInput{Lines: []LineInput{line(omelette, 3)}})
	sf := ledger.Shortfalls(err)
	require.Len(t, sf, 1)
	assert.Equal(t, 6.0, sf[0].Needed)
	assert.Equal(t, 4.0, sf[0].OnHand)

	assert.Equal(t, 2.0, f.unitsOf(eggs))
	current, err := f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, current.Lines, 1)
	assert.Equal(t, 1, current.Lines[0].Quantity)
}

func TestAddOrIncrementLineConsumesDelta(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	flour := f.flour()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	bread := f.recipe("bread", uses(flour, 150, "g"))
	order := f.order(line(omelette, 1))

	updated, err := f.orders.AddOrIncrementLine(f.ctx, order.ID, line(omelette, 2))
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 3, updated.Lines[0].Quantity)
	assert.Equal(t, 4.0, f.unitsOf(eggs))

	updated, err = f.orders.AddOrIncrementLine(f.ctx, order.ID, line(bread, 2))
	require.NoError(t, err)
	assert.Len(t, updated.Lines, 2)
	assert.InDelta(t, 197, f.unitsOf(flour), 1e-9)

	expected := omelette.ProductionCost.Decimal.Mul(decimal.NewFromInt(3)).Add(bread.ProductionCost.Decimal.Mul(decimal.NewFromInt(2)))
	assert.True(t, expected.Equal(updated.TotalValue), "want %s got %s", expected, updated.TotalValue)

	_, err = f.orders.AddOrIncrementLine(f.ctx, order.ID, line(omelette, 0))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestResizeLine(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	order := f.order(line(omelette, 2))
	require.Equal(t, 6.0, f.unitsOf(eggs))

	updated, err := f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Lines[0].Quantity)
	assert.Equal(t, 2.0, f.unitsOf(eggs))

	updated, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Lines[0].Quantity)
	assert.Equal(t, 8.0, f.unitsOf(eggs))
	assert.True(t, omelette.ProductionCost.Decimal.Equal(updated.TotalValue))

	_, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 6)
	sf := ledger.Shortfalls(err)
	require.Len(t, sf, 1)
	assert.Equal(t, 10.0, sf[0].Needed)
	assert.Equal(t, 8.0, sf[0].OnHand)

	_, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, -1)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.orders.ResizeLine(f.ctx, order.ID, uuid.New(), 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	updated, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, updated.Lines)
	assert.True(t, updated.TotalValue.IsZero())
	assert.Equal(t, 10.0, f.unitsOf(eggs))
}

func TestResizeToSameQuantityWritesNothing(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	order := f.order(line(omelette, 2))
	eventsBefore := len(f.events.names())

	got, err := f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.Equal(t, 6.0, f.unitsOf(eggs))
	assert.True(t, order.UpdatedAt.Equal(got.UpdatedAt))
	assert.Len(t, f.events.names(), eventsBefore)
}

func assertTotal(t *testing.T, want string, o *model.Order) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(o.TotalValue), "want %s got %s", want, o.TotalValue)
}

func TestLineEditsKeepOtherLinesPriced(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	flour := f.flour()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	bread := f.recipe("bread", uses(flour, 100, "g"))
	assertCost(t, "2.4", omelette)
	assertCost(t, "0.25", bread)
	order := f.order(line(omelette, 1))

	// 8 eggs left priced 100 puts the omelette at 25
	price := decimal.NewFromInt(100)
	_, err := f.ingredients.UpdateIngredient(f.ctx, eggs.ID, UpdateIngredientInput{CostPrice: &price})
	require.NoError(t, err)
	repriced, err := f.recipes.GetRecipe(f.ctx, omelette.ID)
	require.NoError(t, err)
	assertCost(t, "25", repriced)

	updated, err := f.orders.AddOrIncrementLine(f.ctx, order.ID, line(bread, 1))
	require.NoError(t, err)
	assertTotal(t, "2.65", updated)

	updated, err = f.orders.ResizeLine(f.ctx, order.ID, bread.ID, 3)
	require.NoError(t, err)
	assertTotal(t, "3.15", updated)

	updated, err = f.orders.ResizeLine(f.ctx, order.ID, bread.ID, 2)
	require.NoError(t, err)
	assertTotal(t, "2.9", updated)

	updated, err = f.orders.RemoveLine(f.ctx, order.ID, bread.ID)
	require.NoError(t, err)
	assertTotal(t, "2.4", updated)

	// a line priced before the recost is only worth what it added
	updated, err = f.orders.RemoveLine(f.ctx, order.ID, omelette.ID)
	require.NoError(t, err)
	assert.True(t, updated.TotalValue.IsZero(), "got %s", updated.TotalValue)

	// a full replace prices every line at today's cost
	updated, err = f.orders.ReplaceComposition(f.ctx, order.ID, ReplaceOrderInput{Lines: []LineInput{line(omelette, 1)}})
	require.NoError(t, err)
	assertTotal(t, "25", updated)
}

func TestRemoveLineRestitutes(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	flour := f.flour()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	bread := f.recipe("bread", uses(flour, 0.2, "kg"))
	order := f.order(line(omelette, 3), line(bread, 1))

	updated, err := f.orders.RemoveLine(f.ctx, order.ID, omelette.ID)
	require.NoError(t, err)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, bread.ID, updated.Lines[0].RecipeID)
	assert.Equal(t, 10.0, f.unitsOf(eggs))
	assert.InDelta(t, 198, f.unitsOf(flour), 1e-9)
	assert.True(t, bread.ProductionCost.Decimal.Equal(updated.TotalValue))

	_, err = f.orders.RemoveLine(f.ctx, order.ID, omelette.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSetStatusRoles(t *testing.T) {
	tests := []struct {
		name   string
		caller model.Caller
		target string
		kind   apperr.Kind
		ok     bool
	}{
		{"staff cannot start preparation", staff(), "IN_PREPARATION", apperr.KindForbidden, false},
		{"staff cannot cancel", staff(), "CANCELED", apperr.KindForbidden, false},
		{"unknown role is restricted", model.Caller{Role: "BAKER"}, "IN_PREPARATION", apperr.KindForbidden, false},
		{"junior starts preparation", junior(), "in_preparation", 0, true},
		{"junior cannot cancel", junior(), "CANCELED", apperr.KindForbidden, false},
		{"senior cancels", senior(), "CANCELED", 0, true},
		{"unknown status", senior(), "DELIVERED", apperr.KindInvalidStatus, false},
		{"skipping preparation", senior(), "COMPLETED", apperr.KindInvalidStatus, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			eggs := f.eggs(10)
			omelette := f.recipe("omelette", uses(eggs, 2, "un"))
			order := f.order(line(omelette, 1))

			got, err := f.orders.SetStatus(f.ctx, order.ID, tt.target, tt.caller)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, model.OrderStatus(strings.ToUpper(tt.target)), got.Status)
				return
			}
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
			current, err := f.orders.GetOrder(f.ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusPending, current.Status)
		})
	}
}

func TestCancelRestitutesAndLocksOrder(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	flour := f.flour()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	bread := f.recipe("bread", uses(flour, 150, "g"))
	order := f.order(line(omelette, 3), line(bread, 2))

	_, err := f.orders.SetStatus(f.ctx, order.ID, "IN_PREPARATION", junior())
	require.NoError(t, err)

	canceled, err := f.orders.SetStatus(f.ctx, order.ID, "CANCELED", senior())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)
	assert.Equal(t, 10.0, f.unitsOf(eggs))
	assert.InDelta(t, 200, f.unitsOf(flour), 1e-9)

	_, err = f.orders.SetStatus(f.ctx, order.ID, "PENDING", senior())
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.AddOrIncrementLine(f.ctx, order.ID, line(omelette, 1))
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 1)
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.RemoveLine(f.ctx, order.ID, omelette.ID)
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.ReplaceComposition(f.ctx, order.ID, ReplaceOrderInput{Lines: []LineInput{line(omelette, 1)}})
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))

	// deleting a canceled order must not return its stock a second time
	require.NoError(t, f.orders.DeleteOrder(f.ctx, order.ID))
	assert.Equal(t, 10.0, f.unitsOf(eggs))
	assert.InDelta(t, 200, f.unitsOf(flour), 1e-9)
}

func TestCompletedOrderIsTerminal(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	order := f.order(line(omelette, 1))

	_, err := f.orders.SetStatus(f.ctx, order.ID, "IN_PREPARATION", senior())
	require.NoError(t, err)
	done, err := f.orders.SetStatus(f.ctx, order.ID, "COMPLETED", senior())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, 8.0, f.unitsOf(eggs))

	_, err = f.orders.SetStatus(f.ctx, order.ID, "CANCELED", senior())
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.ResizeLine(f.ctx, order.ID, omelette.ID, 3)
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.AddOrIncrementLine(f.ctx, order.ID, line(omelette, 1))
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.RemoveLine(f.ctx, order.ID, omelette.ID)
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))
	_, err = f.orders.ReplaceComposition(f.ctx, order.ID, ReplaceOrderInput{Lines: []LineInput{line(omelette, 1)}})
	assert.True(t, apperr.Is(err, apperr.KindOrderClosed))

	got, err := f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 1, got.Lines[0].Quantity)
	assert.True(t, done.TotalValue.Equal(got.TotalValue))
	assert.Equal(t, 8.0, f.unitsOf(eggs))
}

func TestSetSameStatusIsNoop(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	order := f.order(line(omelette, 1))

	got, err := f.orders.SetStatus(f.ctx, order.ID, "PENDING", junior())
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, []string{EventOrderCreated}, f.events.names())
}

func TestSetStatusMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.SetStatus(f.ctx, uuid.New(), "CANCELED", senior())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteOrderRestitutes(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	milk := f.milk()
	custard := f.recipe("custard", uses(eggs, 3, "un"), uses(milk, 500, "ml"))
	order := f.order(line(custard, 2))
	assert.Equal(t, 4.0, f.unitsOf(eggs))
	assert.InDelta(t, 9, f.unitsOf(milk), 1e-9)

	require.NoError(t, f.orders.DeleteOrder(f.ctx, order.ID))
	assert.Equal(t, 10.0, f.unitsOf(eggs))
	assert.InDelta(t, 10, f.unitsOf(milk), 1e-9)

	_, err := f.orders.GetOrder(f.ctx, order.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(f.orders.DeleteOrder(f.ctx, order.ID), apperr.KindNotFound))
	assert.Contains(t, f.events.names(), EventOrderDeleted)
}

func TestLifecycleConservesStock(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(20)
	flour := f.flour()
	milk := f.milk()
	omelette := f.recipe("omelette", uses(eggs, 2, "un"))
	bread := f.recipe("bread", uses(flour, 0.35, "kg"), uses(milk, 0.2, "l"))
	custard := f.recipe("custard", uses(eggs, 3, "un"), uses(milk, 250, "ml"))

	a := f.order(line(omelette, 2), line(bread, 1))
	b := f.order(line(custard, 1))

	_, err := f.orders.AddOrIncrementLine(f.ctx, a.ID, line(custard, 2))
	require.NoError(t, err)
	_, err = f.orders.ResizeLine(f.ctx, a.ID, bread.ID, 3)
	require.NoError(t, err)
	_, err = f.orders.ReplaceComposition(f.ctx, b.ID, ReplaceOrderInput{Lines: []LineInput{line(bread, 2), line(omelette, 1)}})
	require.NoError(t, err)
	_, err = f.orders.RemoveLine(f.ctx, a.ID, omelette.ID)
	require.NoError(t, err)
	_, err = f.orders.ResizeLine(f.ctx, b.ID, omelette.ID, 0)
	require.NoError(t, err)
	_, err = f.orders.SetStatus(f.ctx, b.ID, "IN_PREPARATION", junior())
	require.NoError(t, err)

	require.NoError(t, f.orders.DeleteOrder(f.ctx, a.ID))
	require.NoError(t, f.orders.DeleteOrder(f.ctx, b.ID))

	assert.InDelta(t, 20, f.unitsOf(eggs), 1e-9)
	assert.InDelta(t, 200, f.unitsOf(flour), 1e-9)
	assert.InDelta(t, 10, f.unitsOf(milk), 1e-9)
}

func TestListOrdersFiltersByCustomer(t *testing.T) {
	f := newFixture(t)
	eggs := f.eggs(10)
	omelette := f.recipe("omelette", uses(eggs, 1, "un"))
	f.order(line(omelette, 1))
	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{CustomerName: "Carla Souza", Lines: []LineInput{line(omelette, 1)}})
	require.NoError(t, err)

	all, err := f.orders.ListOrders(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := f.orders.ListOrders(f.ctx, "SOUZA")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "carla souza", filtered[0].CustomerName)
}
