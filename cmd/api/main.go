package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/handler"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/middleware"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/service"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/ws"
	"github.com/veritriariyanto/Backend-TallyPOS/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (use a dedicated migration tool in production)
	db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.Transaction{},
		&model.TransactionDetail{},
		&model.StockMovement{},
	)

	// 3. Seed default admin user
	seedAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	userRepo := repository.NewUserRepo(db)

	ledger := service.NewStockLedger(db, productRepo, movementRepo, wsHub)
	codeGen := service.NewTransactionCodeGenerator(txRepo)
	saleService := service.NewSaleService(txRepo, productRepo, customerRepo, ledger, codeGen, wsHub)
	reportService := service.NewReportService(txRepo)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, wsHub)
	customerService := service.NewCustomerService(customerRepo)
	authService := service.NewAuthService(userRepo)

	saleHandler := handler.NewSaleHandler(saleService)
	stockHandler := handler.NewStockHandler(ledger)
	reportHandler := handler.NewReportHandler(reportService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	customerHandler := handler.NewCustomerHandler(customerService)
	authHandler := handler.NewAuthHandler(authService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "TallyPOS Backend v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Request logging
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Product catalog
	protected.Get("/products", catalogHandler.GetProducts)
	protected.Get("/products/low-stock", catalogHandler.GetLowStockProducts)
	protected.Get("/products/:id", catalogHandler.GetProduct)
	protected.Post("/products", middleware.RequireRole(model.RoleAdmin), catalogHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequireRole(model.RoleAdmin), catalogHandler.UpdateProduct)

	// Product categories
	protected.Get("/categories", catalogHandler.GetCategories)
	protected.Get("/categories/:id", catalogHandler.GetCategory)
	protected.Post("/categories", middleware.RequireRole(model.RoleAdmin), catalogHandler.CreateCategory)
	protected.Put("/categories/:id", middleware.RequireRole(model.RoleAdmin), catalogHandler.UpdateCategory)
	protected.Delete("/categories/:id", middleware.RequireRole(model.RoleAdmin), catalogHandler.DeleteCategory)

	// Customer directory
	protected.Get("/customers", customerHandler.GetCustomers)
	protected.Get("/customers/top", customerHandler.GetTopCustomers)
	protected.Get("/customers/:id", customerHandler.GetCustomer)
	protected.Post("/customers", customerHandler.CreateCustomer)
	protected.Put("/customers/:id", customerHandler.UpdateCustomer)

	// Sales
	protected.Post("/sales", saleHandler.CreateSale)
	protected.Get("/sales", saleHandler.GetSales)
	protected.Get("/sales/code/:code", saleHandler.GetSaleByCode)
	protected.Get("/sales/:id", saleHandler.GetSale)
	protected.Post("/sales/:id/cancel", middleware.RequireRole(model.RoleAdmin), saleHandler.CancelSale)

	// Stock ledger
	protected.Post("/stock-movements", middleware.RequireRole(model.RoleAdmin), stockHandler.ApplyMovement)
	protected.Get("/stock-movements", stockHandler.GetMovements)
	protected.Get("/stock-movements/product/:productId", stockHandler.GetMovementsByProduct)
	protected.Get("/stock-movements/summary/:productId", stockHandler.GetSummary)
	protected.Get("/stock-movements/verify/:productId", middleware.RequireRole(model.RoleAdmin), stockHandler.VerifyProduct)

	// Reports
	protected.Get("/reports/sales", reportHandler.GetSalesReport)
	protected.Get("/reports/top-products", reportHandler.GetTopProducts)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedAdmin creates the default admin user if it doesn't exist
func seedAdmin(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	if _, err := userRepo.FindByEmail("admin@example.com"); err == nil {
		return
	}

	admin := &model.User{
		Email:    "admin@example.com",
		FullName: "Administrator",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword("admin123"); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}
	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
		return
	}
	log.Println("Admin user created: admin@example.com / admin123")
}
