package routes

import (
	"heliox/auth"
	"heliox/catalog"
	"heliox/invoice"
	"heliox/middleware"
	"heliox/orders"
	"heliox/ratelim"
	"heliox/recommend"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rateLimiter.Limit(auth.Register))
	router.POST("/api/auth/login", rateLimiter.Limit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
	router.POST("/api/auth/token/refresh", rateLimiter.Limit(middleware.Authenticate(auth.RefreshToken)))
}

func AddCatalogRoutes(router *httprouter.Router) {
	adminOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles("admin"))

	router.POST("/api/catalog", adminOnly(catalog.CreateItem))
	router.GET("/api/catalog", catalog.GetItems)
	router.GET("/api/catalog/:itemId", catalog.GetItem)
	router.PUT("/api/catalog/:itemId", adminOnly(catalog.UpdateItem))
	router.DELETE("/api/catalog/:itemId", adminOnly(catalog.DeleteItem))
}

func AddRecommendRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/recommend", rateLimiter.Limit(middleware.OptionalAuth(recommend.GetRecommendations)))
}

func AddOrderRoutes(router *httprouter.Router) {
	adminOnly := middleware.Chain(middleware.Authenticate, middleware.RequireRoles("admin"))

	router.POST("/api/orders/order", middleware.Authenticate(orders.CreateOrder))
	router.GET("/api/orders/order/:orderId", middleware.Authenticate(orders.GetOrder))
	router.PUT("/api/orders/order/:orderId", adminOnly(orders.UpdateOrder))
	router.DELETE("/api/orders/order/:orderId", adminOnly(orders.DeleteOrder))
	router.GET("/api/orders/order/:orderId/invoice", middleware.Authenticate(invoice.PrintInvoice))

	router.GET("/api/orders/orders", adminOnly(orders.GetAllOrders))
	router.GET("/api/orders/user/:userId", middleware.Authenticate(orders.GetUserOrders))
	router.POST("/api/orders/checkout", middleware.Authenticate(orders.Checkout))
}
