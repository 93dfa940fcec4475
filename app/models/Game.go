package models

// Game is the lobby row for one match. Status moves from "open" through
// "in progress" to a terminal "finished" / "stalled".
type Game struct {
	Id     string
	Name   string
	Status string
}

type GameCreateDto struct {
	Name string `json:"name"`
}

type VerifyGameDto struct {
	Code    string `json:"code"`
	User_id string `json:"user_id"`
}
