package service

import (
	"context"
	"strings"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/ledger"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LineInput struct {
	RecipeID uuid.UUID `json:"recipe_id" validate:"uuid_required"`
	Quantity int       `json:"quantity" validate:"gt=0"`
}

type CreateOrderInput struct {
	CustomerName string      `json:"customer_name" validate:"required"`
	Lines        []LineInput `json:"lines" validate:"required,min=1,dive"`
}

type ReplaceOrderInput struct {
	CustomerName *string     `json:"customer_name"`
	Lines        []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// OrderService is the order lifecycle manager. Every mutation reserves or
// returns stock through the ledger inside the same transaction as the order
// writes.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error)
	ReplaceComposition(ctx context.Context, orderID uuid.UUID, in ReplaceOrderInput) (*model.Order, error)
	AddOrIncrementLine(ctx context.Context, orderID uuid.UUID, in LineInput) (*model.Order, error)
	ResizeLine(ctx context.Context, orderID, recipeID uuid.UUID, newQty int) (*model.Order, error)
	RemoveLine(ctx context.Context, orderID, recipeID uuid.UUID) (*model.Order, error)
	SetStatus(ctx context.Context, orderID uuid.UUID, status string, caller model.Caller) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, customerFilter string) ([]model.Order, error)
}

type orderService struct {
	ingredientRepo repository.IngredientRepository
	recipeRepo     repository.RecipeRepository
	orderRepo      repository.OrderRepository
	db             *gorm.DB
	events         EventPublisher
	log            *logger.Logger
}

func NewOrderService(iRepo repository.IngredientRepository, rRepo repository.RecipeRepository, oRepo repository.OrderRepository, db *gorm.DB, events EventPublisher, log *logger.Logger) OrderService {
	return &orderService{
		ingredientRepo: iRepo,
		recipeRepo:     rRepo,
		orderRepo:      oRepo,
		db:             db,
		events:         publisherOrNoop(events),
		log:            log,
	}
}

// mergeLines folds repeated recipes into one line, keeping first-seen order.
func mergeLines(lines []LineInput) []LineInput {
	idx := make(map[uuid.UUID]int, len(lines))
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.RecipeID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.RecipeID] = len(out)
		out = append(out, l)
	}
	return out
}

// pricedRecipe loads a recipe that can be ordered: it must exist and have a
// production cost.
func pricedRecipe(recipes repository.RecipeRepository, id uuid.UUID) (*model.Recipe, error) {
	recipe, err := recipes.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !recipe.HasCost() {
		return nil, apperr.New(apperr.KindRecipeCostUndefined, "recipe %q has no production cost", recipe.Name)
	}
	return recipe, nil
}

// consumeLines reserves stock for lines and returns them as order lines.
func consumeLines(repos txRepos, orderID uuid.UUID, lines []LineInput) ([]model.OrderRecipe, error) {
	plan := ledger.NewPlan()
	out := make([]model.OrderRecipe, 0, len(lines))
	for _, l := range lines {
		recipe, err := pricedRecipe(repos.recipes, l.RecipeID)
		if err != nil {
			return nil, err
		}
		if err := plan.Add(recipe, l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, model.OrderRecipe{OrderID: orderID, RecipeID: recipe.ID, Quantity: l.Quantity, Recipe: *recipe})
	}
	if err := ledger.Consume(repos.ingredients, plan); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *orderService) repos(tx *gorm.DB) txRepos {
	return bind(tx, s.ingredientRepo, s.recipeRepo, s.orderRepo)
}

// lockOpen loads and locks an order that still accepts composition edits.
func lockOpen(orders repository.OrderRepository, id uuid.UUID) (*model.Order, error) {
	order, err := orders.FindByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, apperr.New(apperr.KindOrderClosed, "order is %s and can no longer be changed", order.Status)
	}
	return order, nil
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	in.CustomerName = normalizeName(in.CustomerName)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	lines := mergeLines(in.Lines)

	var orderID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order := &model.Order{CustomerName: in.CustomerName, Status: model.StatusPending}
		order.ID = uuid.New()

		created, err := consumeLines(repos, order.ID, lines)
		if err != nil {
			return err
		}
		order.TotalValue = orderTotal(created)

		if err := repos.orders.Create(order); err != nil {
			return err
		}
		if err := repos.orders.CreateLines(created); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		s.logFailure("create order", err, "customer", in.CustomerName)
		return nil, err
	}

	return s.committed(ctx, EventOrderCreated, orderID)
}

func (s *orderService) ReplaceComposition(ctx context.Context, orderID uuid.UUID, in ReplaceOrderInput) (*model.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	var newName string
	if in.CustomerName != nil {
		newName = normalizeName(*in.CustomerName)
		if newName == "" {
			return nil, apperr.Validation("customer name must not be empty")
		}
	}
	lines := mergeLines(in.Lines)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := lockOpen(repos.orders, orderID)
		if err != nil {
			return err
		}

		// release everything first so the new composition is checked
		// against stock as it stands without this order
		if err := restituteLines(repos.ingredients, order.Lines); err != nil {
			return err
		}
		if err := repos.orders.DeleteLines(order.ID); err != nil {
			return err
		}

		created, err := consumeLines(repos, order.ID, lines)
		if err != nil {
			return err
		}
		if err := repos.orders.CreateLines(created); err != nil {
			return err
		}

		order.Lines = created
		order.TotalValue = orderTotal(created)
		if newName != "" {
			order.CustomerName = newName
		}
		return repos.orders.Save(order)
	})
	if err != nil {
		s.logFailure("replace order composition", err, "order_id", orderID)
		return nil, err
	}

	return s.committed(ctx, EventOrderUpdated, orderID)
}

func (s *orderService) AddOrIncrementLine(ctx context.Context, orderID uuid.UUID, in LineInput) (*model.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := lockOpen(repos.orders, orderID)
		if err != nil {
			return err
		}

		added, err := consumeLines(repos, order.ID, []LineInput{in})
		if err != nil {
			return err
		}

		if line, ok := order.Line(in.RecipeID); ok {
			line.Quantity += in.Quantity
			line.Recipe = added[0].Recipe
			if err := repos.orders.UpdateLineQuantity(order.ID, in.RecipeID, line.Quantity); err != nil {
				return err
			}
		} else {
			if err := repos.orders.CreateLines(added); err != nil {
				return err
			}
			order.Lines = append(order.Lines, added...)
		}

		order.TotalValue = order.TotalValue.Add(lineValue(&added[0].Recipe, in.Quantity))
		return repos.orders.Save(order)
	})
	if err != nil {
		s.logFailure("add order line", err, "order_id", orderID, "recipe_id", in.RecipeID)
		return nil, err
	}

	return s.committed(ctx, EventOrderUpdated, orderID)
}

func (s *orderService) ResizeLine(ctx context.Context, orderID, recipeID uuid.UUID, newQty int) (*model.Order, error) {
	if newQty < 0 {
		return nil, apperr.Validation("quantity must not be negative")
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := lockOpen(repos.orders, orderID)
		if err != nil {
			return err
		}
		line, ok := order.Line(recipeID)
		if !ok {
			return apperr.NotFound("order line")
		}

		diff := newQty - line.Quantity
		if diff == 0 {
			return nil
		}

		if diff > 0 {
			if !line.Recipe.HasCost() {
				return apperr.New(apperr.KindRecipeCostUndefined, "recipe %q has no production cost", line.Recipe.Name)
			}
			plan, err := ledger.PlanConsumption(&line.Recipe, diff)
			if err != nil {
				return err
			}
			if err := ledger.Consume(repos.ingredients, plan); err != nil {
				return err
			}
		} else {
			plan, err := ledger.PlanRestitution(&line.Recipe, -diff)
			if err != nil {
				return err
			}
			if err := ledger.Restitute(repos.ingredients, plan); err != nil {
				return err
			}
		}

		if diff > 0 {
			order.TotalValue = order.TotalValue.Add(lineValue(&line.Recipe, diff))
		} else {
			order.TotalValue = lessValue(order.TotalValue, lineValue(&line.Recipe, -diff))
		}

		if newQty == 0 {
			if err := repos.orders.DeleteLine(order.ID, recipeID); err != nil {
				return err
			}
			order.Lines = removeLine(order.Lines, recipeID)
		} else {
			line.Quantity = newQty
			if err := repos.orders.UpdateLineQuantity(order.ID, recipeID, newQty); err != nil {
				return err
			}
		}

		changed = true
		return repos.orders.Save(order)
	})
	if err != nil {
		s.logFailure("resize order line", err, "order_id", orderID, "recipe_id", recipeID, "quantity", newQty)
		return nil, err
	}

	if !changed {
		return s.GetOrder(ctx, orderID)
	}
	return s.committed(ctx, EventOrderUpdated, orderID)
}

func (s *orderService) RemoveLine(ctx context.Context, orderID, recipeID uuid.UUID) (*model.Order, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := lockOpen(repos.orders, orderID)
		if err != nil {
			return err
		}
		line, ok := order.Line(recipeID)
		if !ok {
			return apperr.NotFound("order line")
		}

		if err := restituteLines(repos.ingredients, []model.OrderRecipe{*line}); err != nil {
			return err
		}
		if err := repos.orders.DeleteLine(order.ID, recipeID); err != nil {
			return err
		}

		order.TotalValue = lessValue(order.TotalValue, lineValue(&line.Recipe, line.Quantity))
		order.Lines = removeLine(order.Lines, recipeID)
		return repos.orders.Save(order)
	})
	if err != nil {
		s.logFailure("remove order line", err, "order_id", orderID, "recipe_id", recipeID)
		return nil, err
	}

	return s.committed(ctx, EventOrderUpdated, orderID)
}

func (s *orderService) SetStatus(ctx context.Context, orderID uuid.UUID, status string, caller model.Caller) (*model.Order, error) {
	next := model.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, apperr.New(apperr.KindInvalidStatus, "unknown order status %q", status)
	}

	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := repos.orders.FindByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if !caller.Role.CanChangeOrderStatus() {
			return apperr.New(apperr.KindForbidden, "role %s cannot change order status", caller.Role)
		}
		if next == model.StatusCanceled && !caller.Role.CanCancelOrders() {
			return apperr.New(apperr.KindForbidden, "role %s cannot cancel orders", caller.Role)
		}
		if order.Status.Terminal() {
			return apperr.New(apperr.KindOrderClosed, "order is %s and can no longer change status", order.Status)
		}
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return apperr.New(apperr.KindInvalidStatus, "cannot move order from %s to %s", order.Status, next)
		}

		if next == model.StatusCanceled {
			if err := restituteLines(repos.ingredients, order.Lines); err != nil {
				return err
			}
		}

		order.Status = next
		changed = true
		return repos.orders.Save(order)
	})
	if err != nil {
		s.logFailure("set order status", err, "order_id", orderID, "status", next, "role", caller.Role)
		return nil, err
	}

	if !changed {
		return s.GetOrder(ctx, orderID)
	}
	s.log.Info("order status changed", "order_id", orderID, "status", next, "user_id", caller.UserID)
	return s.committed(ctx, EventOrderStatusChanged, orderID)
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		order, err := repos.orders.FindByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order.Status.HoldsStock() {
			if err := restituteLines(repos.ingredients, order.Lines); err != nil {
				return err
			}
		}
		return repos.orders.Delete(order.ID)
	})
	if err != nil {
		s.logFailure("delete order", err, "order_id", orderID)
		return err
	}

	s.events.Publish(EventOrderDeleted, map[string]interface{}{"order_id": orderID})
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.orderRepo.WithTx(s.db.WithContext(ctx)).FindByID(orderID)
}

func (s *orderService) ListOrders(ctx context.Context, customerFilter string) ([]model.Order, error) {
	return s.orderRepo.WithTx(s.db.WithContext(ctx)).FindAll(customerFilter)
}

// committed reloads the order after a successful transaction and announces it.
func (s *orderService) committed(ctx context.Context, event string, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(event, orderEventPayload(order))
	return order, nil
}

func orderEventPayload(o *model.Order) map[string]interface{} {
	return map[string]interface{}{
		"order_id":      o.ID,
		"customer_name": o.CustomerName,
		"status":        o.Status,
		"total_value":   o.TotalValue,
		"lines":         len(o.Lines),
	}
}

func (s *orderService) logFailure(op string, err error, kv ...interface{}) {
	kv = append(kv, "kind", apperr.KindOf(err).String(), "error", err)
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error(op+" failed", kv...)
		return
	}
	s.log.Warn(op+" rejected", kv...)
}
