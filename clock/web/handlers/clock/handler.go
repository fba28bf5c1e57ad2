package clock

import (
	"errors"
	"net/http"
	"time"

	clockcore "crewclock.app/crewclock/clock/core"
	common "crewclock.app/crewclock/clock/web/common"
	"crewclock.app/crewclock/core"
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
	r.POST("/clock", endpoint.Clock)
	r.GET("/clock/status", endpoint.Status)
}

type LocationDTO struct {
	Lat            *float64 `json:"lat" binding:"required"`
	Lng            *float64 `json:"lng" binding:"required"`
	AccuracyMeters *float64 `json:"accuracyMeters" binding:"required"`
}

type ClockRequestDTO struct {
	JobID         int32       `json:"jobId" binding:"required"`
	Kind          string      `json:"kind" binding:"required,oneof=IN OUT"`
	ClientEventID string      `json:"clientEventId" binding:"required,min=8,max=64"`
	RequestedAt   time.Time   `json:"requestedAt" binding:"required"`
	Location      LocationDTO `json:"location" binding:"required"`

	// Only honoured for service/admin callers posting on behalf of a worker
	// (e.g. the replay pipeline). Everyone else clocks as themselves.
	WorkerID *int32 `json:"workerId,omitempty"`
}

// Clock is the single admission endpoint for both IN and OUT punches.
// Accepted decisions, including replays of a recorded token, come back 200;
// rejections come back 409 with the full decision so the device can show
// distance and radius.
func (ep *Endpoint) Clock(c *gin.Context) {
	var dto ClockRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	workerID := middlewares.WorkerID(c)
	if dto.WorkerID != nil && *dto.WorkerID != workerID {
		if !middlewares.IsPrivileged(c) {
			c.JSON(http.StatusForbidden, web.NewErrorResponse("cannot clock on behalf of another worker"))
			return
		}
		workerID = *dto.WorkerID
	}

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	engine := clockcore.NewEngine(db, ep.config, ep.notifier)
	decision, err := engine.RequestClock(c.Request.Context(), clockcore.ClockRequest{
		WorkerID:       workerID,
		CompanyID:      middlewares.Company(c),
		JobID:          dto.JobID,
		Kind:           dto.Kind,
		ClientEventID:  dto.ClientEventID,
		RequestedAt:    dto.RequestedAt,
		Lat:            *dto.Location.Lat,
		Lng:            *dto.Location.Lng,
		AccuracyMeters: *dto.Location.AccuracyMeters,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	if decision.Status == clockcore.StatusRejected {
		c.JSON(http.StatusConflict, web.NewSuccessResponse(decision))
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(decision))
}

type ClockStatusDTO struct {
	ClockedIn bool       `json:"clockedIn"`
	EntryID   string     `json:"entryId,omitempty"`
	JobID     int32      `json:"jobId,omitempty"`
	ClockInAt *time.Time `json:"clockInAt,omitempty"`
}

// Status reports whether the caller currently has an open entry.
func (ep *Endpoint) Status(c *gin.Context) {
	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	engine := clockcore.NewEngine(db, ep.config, ep.notifier)
	entry, err := engine.Store.GetOpenEntry(c.Request.Context(), middlewares.WorkerID(c))
	if errors.Is(err, clockcore.ErrNoOpenEntry) {
		c.JSON(http.StatusOK, web.NewSuccessResponse(ClockStatusDTO{ClockedIn: false}))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(ClockStatusDTO{
		ClockedIn: true,
		EntryID:   entry.ID,
		JobID:     entry.JobID,
		ClockInAt: &entry.ClockInAt,
	}))
}
