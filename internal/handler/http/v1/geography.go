package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary List municipalities
// @Tags Geography
// @Produce json
// @Success 200 {array} models.Municipality
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /municipalities [get]
func (h *Handler) listMunicipalities(c *gin.Context) {
	log := h.log(c, "listMunicipalities")
	municipalities, err := h.geography.ListMunicipalities(c.Request.Context())
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, municipalities)
}

// @Summary List barangays of a municipality
// @Tags Geography
// @Produce json
// @Param id path string true "Municipality ID"
// @Success 200 {array} models.Barangay
// @Failure 400 {object} ErrorResponse "Invalid municipality ID"
// @Failure 404 {object} ErrorResponse "Municipality not found"
// @Router /municipalities/{id}/barangays [get]
func (h *Handler) listBarangays(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	log := h.log(c, "listBarangays").WithField("municipality_id", id)

	barangays, err := h.geography.ListBarangays(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, barangays)
}
