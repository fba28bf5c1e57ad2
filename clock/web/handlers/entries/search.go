package entries

import (
	"net/http"
	"strconv"
	"time"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/utils"
	web "crewclock.app/crewclock/web/common"
	"crewclock.app/crewclock/web/middlewares"
	"github.com/gin-gonic/gin"
)

const searchPageSize = 200

// Search lists entries filtered by worker, job, open state and date range.
// Non-privileged callers are pinned to their own worker id.
func (ep *Endpoint) Search(c *gin.Context) {
	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	query := db.Model(&model.TimeEntry{})

	if middlewares.IsPrivileged(c) {
		if param := c.Query("workerId"); param != "" {
			id, err := strconv.Atoi(param)
			if err != nil {
				c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid workerId"))
				return
			}
			query = query.Where("worker_id = ?", id)
		}
	} else {
		query = query.Where("worker_id = ?", middlewares.WorkerID(c))
	}

	if param := c.Query("jobId"); param != "" {
		id, err := strconv.Atoi(param)
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid jobId"))
			return
		}
		query = query.Where("job_id = ?", id)
	}

	if c.Query("open") == "true" {
		query = query.Where("clock_out_at IS NULL")
	}

	if param := c.Query("from"); param != "" {
		from, err := time.Parse("2006-01-02", param)
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid from date, want YYYY-MM-DD"))
			return
		}
		query = query.Where("clock_in_at >= ?", from)
	}
	if param := c.Query("to"); param != "" {
		to, err := time.Parse("2006-01-02", param)
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse("Invalid to date, want YYYY-MM-DD"))
			return
		}
		query = query.Where("clock_in_at < ?", to.AddDate(0, 0, 1))
	}

	var entries []model.TimeEntry
	if err := query.Order("clock_in_at DESC").Limit(searchPageSize).Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}

	dtos := utils.Map(entries, func(e model.TimeEntry) TimeEntryDTO { return toDTO(&e) })

	c.JSON(http.StatusOK, web.NewSuccessResponse(dtos))
}
