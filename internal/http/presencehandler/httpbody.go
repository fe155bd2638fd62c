package presencehandler

import "meetingrelay/internal/presence"

type RoomPresence struct {
	Room string `json:"room" example:"R1"`
	presence.Counters
} // @name RoomPresence

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	Fabric string `json:"fabric" example:"local"`
} // @name HealthResponse
