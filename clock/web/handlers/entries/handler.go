package entries

import (
	"errors"
	"net/http"

	clockcore "crewclock.app/crewclock/clock/core"
	common "crewclock.app/crewclock/clock/web/common"
	"crewclock.app/crewclock/core"
	"crewclock.app/crewclock/security"
	web "crewclock.app/crewclock/web/common"
	"crewclock.app/crewclock/web/middlewares"
	"github.com/gin-gonic/gin"
)

type Endpoint struct {
	base     common.Handler
	config   clockcore.Config
	notifier clockcore.Notifier
}

func Register(r *gin.RouterGroup, dm *core.DatabaseManager, cfg clockcore.Config, notifier clockcore.Notifier) {
	endpoint := &Endpoint{base: common.Handler{Dm: dm}, config: cfg, notifier: notifier}
	r.GET("/time-entries", endpoint.Search)
	r.GET("/time-entries/:id", endpoint.Get)
	r.PUT("/time-entries/:id",
		middlewares.RequireRole(security.RoleAdmin, security.RoleManager),
		endpoint.Update)
}

// Update applies an audited correction to an entry. The taxonomy maps onto
// status codes: invalid input is a 400, a locked entry without force is a
// 409, and so are overlaps and write contention.
func (ep *Endpoint) Update(c *gin.Context) {
	entryID := c.Param("id")

	var dto TimeEntryUpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	engine := clockcore.NewEngine(db, ep.config, ep.notifier)
	updated, err := engine.EditTimeEntry(c.Request.Context(), entryID, clockcore.EditChanges{
		ClockInAt:     dto.ClockInAt,
		ClockOutAt:    dto.ClockOutAt,
		ClearClockOut: dto.ClearClockOut,
		JobID:         dto.JobID,
		ExceptionTags: dto.ExceptionTags,
		Approved:      dto.Approved,
	}, dto.EditReason, middlewares.WorkerID(c), dto.Force)
	if err != nil {
		var editErr *clockcore.EditError
		switch {
		case errors.Is(err, clockcore.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, web.NewErrorResponse("Time entry not found"))
		case errors.As(err, &editErr):
			status := http.StatusConflict
			if editErr.Reason == clockcore.ReasonInvalidInput {
				status = http.StatusBadRequest
			}
			c.JSON(status, web.NewRejectionResponse(string(editErr.Reason), editErr.Message))
		default:
			c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(toDTO(updated)))
}
