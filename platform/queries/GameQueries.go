// Package queries holds the lobby persistence helpers shared by the
// REST controllers and the socket layer.
package queries

import (
	"github.com/go-pg/pg/v10"

	"tycoonsim/app/models"
)

// GameExists reports whether a lobby row exists for id.
func GameExists(id string, db *pg.DB) bool {
	game := &models.Game{Id: id}
	return db.Model(game).WherePK().Select() == nil
}

// SetGameStatus moves a game through its lobby lifecycle.
func SetGameStatus(id, status string, db *pg.DB) error {
	game := &models.Game{Id: id}
	_, err := db.Model(game).WherePK().Set("status = ?", status).Update()
	return err
}

// GetUser fetches one user row by id.
func GetUser(id string, db *pg.DB) (*models.User, error) {
	user := &models.User{Id: id}
	if err := db.Model(user).WherePK().Select(); err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePlayer binds a user to a game seat.
func CreatePlayer(player models.Player, db *pg.DB) error {
	_, err := db.Model(&player).Insert()
	return err
}

// DeletePlayer releases one seat.
func DeletePlayer(userID, gameID string, db *pg.DB) error {
	player := new(models.Player)
	_, err := db.Model(player).Where("user_id = ? and game_id = ?", userID, gameID).Delete()
	return err
}

// DeleteGamePlayers clears every seat of a finished game.
func DeleteGamePlayers(gameID string, db *pg.DB) error {
	player := new(models.Player)
	_, err := db.Model(player).Where("game_id = ?", gameID).Delete()
	return err
}

// PlayersOf lists the seats of a game in join order.
func PlayersOf(gameID string, db *pg.DB) ([]models.Player, error) {
	var players []models.Player
	err := db.Model(&players).Where("game_id = ?", gameID).Order("seat ASC").Select()
	return players, err
}
