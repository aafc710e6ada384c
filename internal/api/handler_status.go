package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// pcStatusResponse is the public view of one PC. Who holds a PC is room-wide
// visible information; tokens and user ids are not.
type pcStatusResponse struct {
	Occupied          bool    `json:"occupied"`
	HolderDisplayName *string `json:"holder_display_name"`
}

// GetStatus handles GET /api/status: a mapping of PC id to occupancy.
func (h *Handler) GetStatus(c *gin.Context) {
	pcs, err := h.store.StatusSnapshot(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve status"})
		return
	}

	response := make(map[string]pcStatusResponse, len(pcs))
	for _, pc := range pcs {
		response[pc.ID] = pcStatusResponse{
			Occupied:          pc.Busy,
			HolderDisplayName: pc.OwnerName,
		}
	}
	c.JSON(http.StatusOK, response)
}

// GetLayout handles GET /api/layout: the static room grid, for rendering the
// map client-side.
func (h *Handler) GetLayout(c *gin.Context) {
	c.JSON(http.StatusOK, h.layout)
}
