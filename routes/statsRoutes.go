package routes

import (
	"heliox/middleware"
	"heliox/stats"

	"github.com/julienschmidt/httprouter"
)

func AddStatsRoutes(router *httprouter.Router) {
	statsService := stats.NewService(nil)

	router.GET("/api/stats",
		middleware.Chain(middleware.Authenticate, middleware.RequireRoles("admin"))(statsService.GetStats),
	)
}
