package routes

import (
	"heliox/middleware"
	"heliox/payments"
	"heliox/paystack"
	"heliox/ratelim"

	"github.com/julienschmidt/httprouter"
)

// AddPaymentRoutes wires the payment reconciliation flow to the router.
func AddPaymentRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter) *payments.Service {
	payService := payments.NewService(paystack.New())

	router.POST("/api/orders/order/:orderId/pay",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			payments.Idempotency,
		)(payService.Pay),
	)

	router.POST("/api/orders/order/:orderId/pay-installment",
		middleware.Chain(
			rateLimiter.Limit,
			middleware.Authenticate,
			payments.Idempotency,
		)(payService.PayInstallment),
	)

	router.GET("/api/orders/payments/verify/:reference", rateLimiter.Limit(payService.Verify))

	// Gateway-initiated; no auth, the reference is re-verified upstream.
	router.POST("/api/orders/payments/callback", rateLimiter.Limit(payService.Callback))

	return payService
}
