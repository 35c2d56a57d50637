package availability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthfirst/portal-api/internal/flow"
	"github.com/healthfirst/portal-api/internal/handler"
	"github.com/healthfirst/portal-api/internal/middleware"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/service/availability"
	"github.com/healthfirst/portal-api/internal/upstream"
	"github.com/healthfirst/portal-api/pkg/metrics"
	"github.com/healthfirst/portal-api/pkg/validator"
)

const (
	SaveFailedMessage = "Failed to save availability. Please try again."
	SavedMessage      = "Availability saved successfully."

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

const (
	collectionDateRanges = "date_ranges"
	collectionWeekly     = "weekly_slots"
	collectionBlocked    = "blocked_intervals"
	collectionClinician  = "clinician"
	collectionTimezone   = "timezone"
)

type Handler struct {
	svc     availability.Service
	metrics *metrics.Metrics
}

func NewHandler(svc availability.Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, metrics: m}
}

type ClinicianRequest struct {
	Name string `json:"name" binding:"required,clinician"`
}

type TimezoneRequest struct {
	Timezone string `json:"timezone" binding:"timezone"`
}

// The update requests allow an empty value so a cell can be cleared.

type DateRangeUpdate struct {
	Field string `json:"field" binding:"required,oneof=startDate endDate"`
	Value string `json:"value"`
}

type WeeklySlotUpdate struct {
	Field string `json:"field" binding:"required,oneof=day fromTime tillTime"`
	Value string `json:"value"`
}

type BlockedIntervalUpdate struct {
	Field string `json:"field" binding:"required,oneof=date fromTime tillTime"`
	Value string `json:"value"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/availability")
	{
		g.GET("", h.Get)
		g.DELETE("", h.Discard)
		g.PUT("/clinician", h.SelectClinician)
		g.PUT("/timezone", h.SetTimezone)

		g.POST("/date-ranges", h.AddDateRange)
		g.PATCH("/date-ranges/:index", h.UpdateDateRange)
		g.DELETE("/date-ranges/:index", h.RemoveDateRange)

		g.POST("/weekly-slots", h.AddWeeklySlot)
		g.PATCH("/weekly-slots/:id", h.UpdateWeeklySlot)
		g.DELETE("/weekly-slots/:id", h.RemoveWeeklySlot)

		g.POST("/blocked-intervals", h.AddBlockedInterval)
		g.PATCH("/blocked-intervals/:id", h.UpdateBlockedInterval)
		g.DELETE("/blocked-intervals/:id", h.RemoveBlockedInterval)

		g.POST("/save", h.Save)
		g.GET("/export", h.Export)
	}
}

func (h *Handler) edit(c *gin.Context, collection, op string, fn func(e *availability.Editor)) {
	draft, err := h.svc.Edit(middleware.SessionID(c), fn)
	if err != nil {
		handler.Error(c, err, nil)
		return
	}
	h.metrics.DraftMutation(collection, op)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(draft))
}

func (h *Handler) Get(c *gin.Context) {
	draft, err := h.svc.Draft(middleware.SessionID(c))
	if err != nil {
		handler.Error(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(draft))
}

// Discard drops the draft. The next read reopens the placeholder.
func (h *Handler) Discard(c *gin.Context) {
	h.svc.Discard(middleware.SessionID(c))
	c.Status(http.StatusNoContent)
}

func (h *Handler) SelectClinician(c *gin.Context) {
	var req ClinicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	h.edit(c, collectionClinician, "select", func(e *availability.Editor) {
		e.SelectClinician(req.Name)
	})
}

func (h *Handler) SetTimezone(c *gin.Context) {
	var req TimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	h.edit(c, collectionTimezone, "set", func(e *availability.Editor) {
		e.SetTimezone(req.Timezone)
	})
}

func (h *Handler) AddDateRange(c *gin.Context) {
	h.edit(c, collectionDateRanges, "add", func(e *availability.Editor) {
		e.AddDateRange()
	})
}

func (h *Handler) UpdateDateRange(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	var req DateRangeUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !checkValue(c, req.Field, req.Value) {
		return
	}
	h.edit(c, collectionDateRanges, "update", func(e *availability.Editor) {
		e.UpdateDateRange(index, req.Field, req.Value)
	})
}

func (h *Handler) RemoveDateRange(c *gin.Context) {
	index, ok := indexParam(c)
	if !ok {
		return
	}
	h.edit(c, collectionDateRanges, "remove", func(e *availability.Editor) {
		e.RemoveDateRange(index)
	})
}

func (h *Handler) AddWeeklySlot(c *gin.Context) {
	h.edit(c, collectionWeekly, "add", func(e *availability.Editor) {
		e.AddWeeklySlot()
	})
}

func (h *Handler) UpdateWeeklySlot(c *gin.Context) {
	var req WeeklySlotUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !checkValue(c, req.Field, req.Value) {
		return
	}
	id := c.Param("id")
	h.edit(c, collectionWeekly, "update", func(e *availability.Editor) {
		e.UpdateWeeklySlot(id, req.Field, req.Value)
	})
}

func (h *Handler) RemoveWeeklySlot(c *gin.Context) {
	id := c.Param("id")
	h.edit(c, collectionWeekly, "remove", func(e *availability.Editor) {
		e.RemoveWeeklySlot(id)
	})
}

func (h *Handler) AddBlockedInterval(c *gin.Context) {
	h.edit(c, collectionBlocked, "add", func(e *availability.Editor) {
		e.AddBlockedInterval()
	})
}

func (h *Handler) UpdateBlockedInterval(c *gin.Context) {
	var req BlockedIntervalUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BindError(c, err)
		return
	}
	if !checkValue(c, req.Field, req.Value) {
		return
	}
	id := c.Param("id")
	h.edit(c, collectionBlocked, "update", func(e *availability.Editor) {
		e.UpdateBlockedInterval(id, req.Field, req.Value)
	})
}

func (h *Handler) RemoveBlockedInterval(c *gin.Context) {
	id := c.Param("id")
	h.edit(c, collectionBlocked, "remove", func(e *availability.Editor) {
		e.RemoveBlockedInterval(id)
	})
}

// Save submits the draft with the session's token. The draft stays open
// either way.
func (h *Handler) Save(c *gin.Context) {
	draft, err := h.svc.Save(c.Request.Context(), middleware.SessionID(c), middleware.AuthToken(c))
	if err != nil {
		msg := upstream.MessageOr(err, SaveFailedMessage)
		if errors.Is(err, upstream.ErrNetwork) {
			msg = flow.NetworkErrorMessage
		}
		handler.Error(c, &flow.Failure{Message: msg, Err: err}, draft)
		return
	}

	resp := handler.NewSuccessResponse(draft)
	resp.Message = SavedMessage
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Export(c *gin.Context) {
	draft, err := h.svc.Draft(middleware.SessionID(c))
	if err != nil {
		handler.Error(c, err, nil)
		return
	}

	buf, err := availability.Export(draft)
	if err != nil {
		handler.Error(c, err, nil)
		return
	}

	filename := fmt.Sprintf("availability_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func indexParam(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("index must be a number"))
		return 0, false
	}
	return index, true
}

// checkValue rejects a malformed non-empty value with a 400. Empty values
// pass so a cell can be cleared.
func checkValue(c *gin.Context, field, value string) bool {
	if value == "" {
		return true
	}
	if msg := valueError(field, value); msg != "" {
		handler.Error(c, validator.FieldErrors{"value": msg}, nil)
		return false
	}
	return true
}

func valueError(field, value string) string {
	switch field {
	case model.FieldDay:
		if !model.IsWeekday(value) {
			return "Please select a valid day"
		}
	case model.FieldFromTime, model.FieldTillTime:
		if !validator.IsClock(value) {
			return "Please enter a valid time (HH:MM)"
		}
	case model.FieldDate, model.FieldStartDate, model.FieldEndDate:
		if _, ok := validator.ParseDate(value); !ok {
			return "Please enter a valid date"
		}
	}
	return ""
}
