package timeline

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/handler"
	"github.com/medifollow/care-api/internal/middleware"
	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/service/timeline"
)

type Handler struct {
	service *timeline.Service
}

func NewHandler(service *timeline.Service) *Handler {
	return &Handler{service: service}
}

// PatientTimeline returns the patient's event threads. Optional query
// parameters: types (comma-separated), search, start_date and end_date
// (YYYY-MM-DD).
func (h *Handler) PatientTimeline(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("not authenticated"))
		return
	}

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	threads, err := h.service.PatientTimeline(c.Request.Context(), actor, patientID, filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(threads))
}

func parseFilter(c *gin.Context) (model.TimelineFilter, error) {
	var filter model.TimelineFilter

	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, model.TimelineEventType(t))
			}
		}
	}
	filter.Search = c.Query("search")

	if raw := c.Query("start_date"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &start
	}
	if raw := c.Query("end_date"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, err
		}
		// Make the end bound cover the whole day.
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	return filter, nil
}
