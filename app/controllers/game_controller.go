package controllers

import (
	"github.com/gofiber/fiber/v2"

	"tycoonsim/app/models"
	"tycoonsim/pkg"
	"tycoonsim/platform/cache"
	"tycoonsim/platform/database"
	"tycoonsim/platform/queries"
)

func CreateGame(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	gameCreateDto := new(models.GameCreateDto)
	if err := c.BodyParser(gameCreateDto); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	game := &models.Game{
		Id:     pkg.RandString(8),
		Name:   gameCreateDto.Name,
		Status: "open",
	}

	if _, err := db.Model(game).Insert(); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{"id": game.Id})
}

func GetAllAvailGames(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	var games []models.Game
	if err := db.Model(&games).Where("status = ?", "open").Select(); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(games)
}

func VerifyGame(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	verifyGameDto := new(models.VerifyGameDto)
	if err := c.QueryParser(verifyGameDto); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	game := &models.Game{Id: verifyGameDto.Code}
	if err := db.Model(game).WherePK().Select(); err != nil {
		return c.JSON(fiber.Map{"status": false})
	}
	return c.JSON(fiber.Map{"status": true})
}

// GamePlayers lists the seats of a game in join order.
func GamePlayers(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	db := database.PostgreSQLConnection()
	defer db.Close()

	players, err := queries.PlayersOf(id, db)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(players)
}

// GameState serves the last published snapshot of a running game, so a
// reconnecting client can catch up without waiting for the next update.
func GameState(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	conn, err := cache.CreateRedisConnection()
	if err != nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}
	defer conn.Close()

	payload, err := cache.LoadSnapshot(id, &conn)
	if err != nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	c.Set("Content-Type", "application/json")
	return c.Send(payload)
}
