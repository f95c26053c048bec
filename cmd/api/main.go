package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bakery-backoffice/internal/config"
	"bakery-backoffice/internal/handler"
	"bakery-backoffice/internal/middleware"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/internal/repository"
	"bakery-backoffice/internal/service"
	"bakery-backoffice/internal/ws"
	"bakery-backoffice/pkg/database"
	"bakery-backoffice/pkg/jwt"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load config
	cfg, envLoaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync()
	if !envLoaded {
		log.Warn(".env file not found, using process environment")
	}

	// 2. Setup Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", "driver", cfg.Database.Driver, "error", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal("migration failed", "error", err)
	}

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal("jwt setup failed", "error", err)
	}

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub(log.With("component", "ws"))
	go wsHub.Run()

	// 4. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	ingredientRepo := repository.NewIngredientRepo(db)
	recipeRepo := repository.NewRecipeRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	statsRepo := repository.NewStatsRepo(db)

	authService := service.NewAuthService(userRepo, tokens, log)
	userService := service.NewUserService(userRepo, log.With("component", "users"))
	ingredientService := service.NewIngredientService(ingredientRepo, recipeRepo, orderRepo, db, log.With("component", "ingredients"))
	recipeService := service.NewRecipeService(ingredientRepo, recipeRepo, orderRepo, db, log.With("component", "recipes"))
	orderService := service.NewOrderService(ingredientRepo, recipeRepo, orderRepo, db, wsHub, log.With("component", "orders"))
	dashService := service.NewDashboardService(statsRepo)

	// 5. Seed the first senior supervisor
	created, err := authService.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		log.Warn("failed to seed admin user", "error", err)
	} else if created {
		log.Info("admin user created", "email", cfg.Admin.Email, "role", "SUPERVISOR_SENIOR")
	}

	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userService, log)
	ingredientHandler := handler.NewIngredientHandler(ingredientService, log)
	recipeHandler := handler.NewRecipeHandler(recipeService, log)
	orderHandler := handler.NewOrderHandler(orderService, log)
	dashHandler := handler.NewDashboardHandler(dashService, log)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(tokens, userRepo))
	supervisor := middleware.RequireSupervisor()

	users := protected.Group("/users", middleware.RequireRole(model.RoleSupervisorSenior))
	users.Get("/", userHandler.GetUsers)
	users.Get("/:id", userHandler.GetUser)
	users.Post("/", userHandler.CreateUser)
	users.Put("/:id", userHandler.UpdateUser)

	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	protected.Get("/dashboard/order-volume", dashHandler.GetOrderVolume)

	protected.Get("/ingredients", ingredientHandler.GetIngredients)
	protected.Get("/ingredients/:id", ingredientHandler.GetIngredient)
	protected.Get("/ingredients/:id/usage", ingredientHandler.GetIngredientUsage)
	protected.Post("/ingredients", supervisor, ingredientHandler.CreateIngredient)
	protected.Put("/ingredients/:id", supervisor, ingredientHandler.UpdateIngredient)
	protected.Delete("/ingredients/:id", supervisor, ingredientHandler.DeleteIngredient)

	protected.Get("/recipes", recipeHandler.GetRecipes)
	protected.Get("/recipes/:id", recipeHandler.GetRecipe)
	protected.Get("/recipes/:id/usage", recipeHandler.GetRecipeUsage)
	protected.Post("/recipes", supervisor, recipeHandler.CreateRecipe)
	protected.Put("/recipes/:id", supervisor, recipeHandler.UpdateRecipe)
	protected.Delete("/recipes/:id", supervisor, recipeHandler.DeleteRecipe)
	protected.Post("/recipes/:id/ingredients", supervisor, recipeHandler.AddIngredient)
	protected.Put("/recipes/:id/ingredients/:ingredientId", supervisor, recipeHandler.UpdateIngredient)
	protected.Delete("/recipes/:id/ingredients/:ingredientId", supervisor, recipeHandler.RemoveIngredient)

	// status rules are role-dependent and enforced by the order service
	protected.Get("/orders", orderHandler.GetOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Put("/orders/:id", orderHandler.ReplaceOrder)
	protected.Delete("/orders/:id", orderHandler.DeleteOrder)
	protected.Post("/orders/:id/recipes", orderHandler.AddLine)
	protected.Put("/orders/:id/recipes/:recipeId", orderHandler.ResizeLine)
	protected.Delete("/orders/:id/recipes/:recipeId", orderHandler.RemoveLine)
	protected.Put("/orders/:id/status", orderHandler.SetStatus)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(wsHub.Serve))

	// 8. Graceful Shutdown
	go func() {
		log.Info("server listening", "port", cfg.Port, "driver", cfg.Database.Driver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	wsHub.Close()
	if err := app.Shutdown(); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("server exited")
}
