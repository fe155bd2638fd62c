package presencehandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"meetingrelay/internal/fabric"
	"meetingrelay/internal/presence"
)

// PresenceReader is the read side of the relay engine.
type PresenceReader interface {
	Counters(roomID string) presence.Counters
	Rooms() []string
	Mode() fabric.Mode
}

type Handler struct {
	svc PresenceReader
}

func New(svc PresenceReader) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.GET("/rooms", h.list)
	r.GET("/rooms/:id/presence", h.info)
}

// @Summary		Room presence
// @Description	Presence counters of one room as seen by this instance.
// @Tags			Presence
// @Param			id	path		string	true	"Room ID"	default(R1)
// @Success		200	{object}	RoomPresence
// @Router			/rooms/{id}/presence [get]
func (h *Handler) info(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, RoomPresence{Room: id, Counters: h.svc.Counters(id)})
}

// @Summary		List rooms
// @Description	Rooms with at least one connection attached to this instance.
// @Tags			Presence
// @Success		200	{array}	RoomPresence
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	ids := h.svc.Rooms()
	out := make([]RoomPresence, 0, len(ids))
	for _, id := range ids {
		out = append(out, RoomPresence{Room: id, Counters: h.svc.Counters(id)})
	}
	c.JSON(http.StatusOK, out)
}

// @Summary		Health
// @Tags			Health
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Fabric: string(h.svc.Mode())})
}
