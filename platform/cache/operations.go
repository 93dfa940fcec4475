// Package cache keeps the published game snapshots and the lobby seat
// lists in redis, so web clients and reconnecting players can read the
// latest state without touching a live game's goroutine.
package cache

import (
	"fmt"

	"github.com/gomodule/redigo/redis"
)

func snapshotKey(gameID string) string { return fmt.Sprintf("%s.snapshot", gameID) }
func seatsKey(gameID string) string    { return fmt.Sprintf("%s.seats", gameID) }

// SnapshotChannel is the pub/sub channel carrying snapshot updates for
// one game.
func SnapshotChannel(gameID string) string { return fmt.Sprintf("%s.updates", gameID) }

// StoreSnapshot writes the latest serialized snapshot and publishes it.
func StoreSnapshot(gameID string, payload []byte, conn *redis.Conn) error {
	if _, err := (*conn).Do("SET", snapshotKey(gameID), payload); err != nil {
		return err
	}
	_, err := (*conn).Do("PUBLISH", SnapshotChannel(gameID), payload)
	return err
}

// LoadSnapshot returns the last published snapshot for a game.
func LoadSnapshot(gameID string, conn *redis.Conn) ([]byte, error) {
	return redis.Bytes((*conn).Do("GET", snapshotKey(gameID)))
}

// AddSeat appends a user to the lobby seat order.
func AddSeat(gameID, userID string, conn *redis.Conn) error {
	_, err := (*conn).Do("RPUSH", seatsKey(gameID), userID)
	return err
}

// RemoveSeat drops a user from the lobby seat order.
func RemoveSeat(gameID, userID string, conn *redis.Conn) error {
	_, err := (*conn).Do("LREM", seatsKey(gameID), 0, userID)
	return err
}

// Seats returns the joined users in seat order.
func Seats(gameID string, conn *redis.Conn) ([]string, error) {
	return redis.Strings((*conn).Do("LRANGE", seatsKey(gameID), 0, -1))
}

// SeatCount returns how many users hold a seat.
func SeatCount(gameID string, conn *redis.Conn) (int, error) {
	return redis.Int((*conn).Do("LLEN", seatsKey(gameID)))
}

// CleanupGame removes everything cached for a finished game.
func CleanupGame(gameID string, conn *redis.Conn) {
	(*conn).Do("DEL", snapshotKey(gameID))
	(*conn).Do("DEL", seatsKey(gameID))
}
