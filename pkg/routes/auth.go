package routes

import (
	"github.com/gofiber/fiber/v2"

	"tycoonsim/app/controllers"
)

func AuthRoutes(a *fiber.App) {
	route := a.Group("/user")

	route.Post("/signup", controllers.CreateUser)
	route.Post("/login", controllers.Login)
}
