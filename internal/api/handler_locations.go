package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parkbot/internal/model"
	"parkbot/internal/store"
)

type coordinates struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

type putLocationRequest struct {
	UserID      string      `json:"user_id" binding:"required"`
	Origin      coordinates `json:"origin" binding:"required"`
	Destination coordinates `json:"destination" binding:"required"`
}

type locationResponse struct {
	UserID      string             `json:"user_id"`
	Origin      map[string]float64 `json:"origin"`
	Destination map[string]float64 `json:"destination"`
}

// PutLocation registers or replaces a user's commute.
func (h *Handler) PutLocation(c *gin.Context) {
	var req putLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := model.UserLocation{
		UserID:    req.UserID,
		OriginLat: *req.Origin.Lat,
		OriginLng: *req.Origin.Lng,
		DestLat:   *req.Destination.Lat,
		DestLng:   *req.Destination.Lng,
	}
	if err := h.store.PutLocation(c.Request.Context(), &loc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

// GetLocation returns a user's registered commute.
func (h *Handler) GetLocation(c *gin.Context) {
	loc, err := h.store.GetLocation(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, locationResponse{
		UserID:      loc.UserID,
		Origin:      map[string]float64{"lat": loc.OriginLat, "lng": loc.OriginLng},
		Destination: map[string]float64{"lat": loc.DestLat, "lng": loc.DestLng},
	})
}

// DeleteLocation removes a user's commute.
func (h *Handler) DeleteLocation(c *gin.Context) {
	err := h.store.DeleteLocation(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
