package routes

import (
	"time"

	"stride_back_end/internal/cache"
	"stride_back_end/internal/handlers"
	carthandler "stride_back_end/internal/handlers/cart"
	"stride_back_end/internal/handlers/order"
	"stride_back_end/internal/handlers/payment"
	"stride_back_end/internal/handlers/product"
	"stride_back_end/internal/handlers/user"
	"stride_back_end/internal/middleware"
	"stride_back_end/internal/repository"
	"stride_back_end/internal/services"
	"stride_back_end/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Users    repository.UserRepository
	Shoes    repository.ShoeRepository
	Carts    cache.CartStore
	Attempts cache.AttemptStore
	Orders   *services.OrderService
	Index    services.ShoeIndex
	Storage  services.ImageStorage
	Tokens   *utils.TokenManager

	AdminEmail          string
	AllowedOrigins      []string
	UploadDir           string // served under /uploads when set
	UPIPayee            order.UPIPayee
	StripeWebhookSecret string

	Log *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", handlers.GuestSessionHeader},
		ExposeHeaders:    []string{handlers.GuestSessionHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	r.GET("/", handlers.Root)
	api := r.Group("/api")
	api.GET("/health", handlers.Health)

	auth := middleware.AuthRequired(d.Tokens, d.Users, d.Log)
	optional := middleware.OptionalAuth(d.Tokens, d.Users, d.Log)
	admin := middleware.RequireAdmin(d.AdminEmail)

	users := user.New(d.Users, d.Shoes, d.Carts, d.Tokens, d.Log)
	authAPI := api.Group("/auth")
	{
		authAPI.POST("/register", middleware.RegisterRateLimit(d.Attempts, d.Log), users.Register)
		authAPI.POST("/login", middleware.LoginRateLimit(d.Attempts, d.Log), users.Login)
		authAPI.GET("/me", auth, users.Me)
		authAPI.PUT("/update", auth, users.Update)
		authAPI.DELETE("/me", auth, users.Delete)
	}

	account := api.Group("", auth)
	{
		account.GET("/addresses", users.ListAddresses)
		account.POST("/addresses", users.AddAddress)
		account.PUT("/addresses/:id", users.UpdateAddress)
		account.DELETE("/addresses/:id", users.DeleteAddress)
		account.PATCH("/addresses/:id/default", users.SetDefaultAddress)

		account.GET("/payment-methods", users.ListPaymentMethods)
		account.POST("/payment-methods", users.AddPaymentMethod)
		account.PUT("/payment-methods/:id", users.UpdatePaymentMethod)
		account.DELETE("/payment-methods/:id", users.DeletePaymentMethod)
		account.PATCH("/payment-methods/:id/default", users.SetDefaultPaymentMethod)

		account.GET("/wishlist", users.GetWishlist)
		account.POST("/wishlist", users.AddToWishlist)
		account.POST("/wishlist/move-to-cart", users.MoveToCart)
		account.DELETE("/wishlist/:shoeId", users.RemoveFromWishlist)
	}

	shoes := product.New(d.Shoes, d.Index, d.Storage, d.Log)
	catalog := api.Group("/shoes")
	{
		catalog.GET("", shoes.List)
		catalog.GET("/:id", shoes.Get)
		catalog.POST("", auth, admin, shoes.Create)
		catalog.PUT("/:id", auth, admin, shoes.Update)
		catalog.DELETE("/:id", auth, admin, shoes.Delete)
		catalog.POST("/:id/images", auth, admin, shoes.AddImages)
	}

	carts := carthandler.New(d.Carts, d.Shoes, d.AllowedOrigins, d.Log)
	cartAPI := api.Group("/cart")
	{
		cartAPI.GET("", optional, carts.Get)
		cartAPI.DELETE("", optional, carts.Clear)
		cartAPI.POST("/items", optional, carts.AddItem)
		cartAPI.PATCH("/items/:shoeId", optional, carts.UpdateItem)
		cartAPI.DELETE("/items/:shoeId", optional, carts.RemoveItem)
		cartAPI.POST("/merge", auth, carts.Merge)
		cartAPI.GET("/ws", auth, carts.Sync)
	}

	orders := order.New(d.Orders, d.Carts, d.UPIPayee, d.Log)
	orderAPI := api.Group("/orders", auth)
	{
		orderAPI.POST("", orders.Create)
		orderAPI.GET("", orders.List)
		orderAPI.GET("/all", admin, orders.All)
		orderAPI.GET("/:id", orders.Get)
		orderAPI.PATCH("/:id/verify-payment", orders.VerifyPayment)
		orderAPI.POST("/:id/cancel", orders.Cancel)
		orderAPI.PATCH("/:id/status", admin, orders.UpdateStatus)
		orderAPI.GET("/:id/upi", orders.UPI)
		orderAPI.GET("/:id/upi-qr", orders.UPIQRCode)
	}

	payments := payment.New(d.Orders, d.StripeWebhookSecret, d.Log)
	api.POST("/payments/intent", auth, payments.CreateIntent)
	api.POST("/payments/webhook", payments.Webhook)
}
