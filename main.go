package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"

	"tycoonsim/app/controllers"
	"tycoonsim/pkg/routes"
	"tycoonsim/platform/config"
	"tycoonsim/platform/logging"
	socket "tycoonsim/platform/sockets"
)

func main() {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowOrigin}))
	routes.AuthRoutes(app)
	routes.GameRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
	}))

	app.Get("/user/cur", controllers.Cur)
	go socket.CreateSocketIOServer(cfg)
	app.Listen(cfg.ListenAddr)
}
