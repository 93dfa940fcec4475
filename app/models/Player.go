package models

// Player is the lobby row binding a user to a game seat. The in-game
// state (cash, position, holdings) lives in the engine, not here.
type Player struct {
	User_id  string
	Game_id  string
	Username string
	Seat     int
}
