package entries

import (
	"net/http"

	"crewclock.app/crewclock/clock/model"
	"crewclock.app/crewclock/utils"
	web "crewclock.app/crewclock/web/common"
	"crewclock.app/crewclock/web/middlewares"
	"github.com/gin-gonic/gin"
)

func (ep *Endpoint) Get(c *gin.Context) {
	entryID := c.Param("id")

	db, conn, err := ep.base.GetDB(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	defer conn.Close()

	var entry model.TimeEntry
	if err := db.Where("id = ?", entryID).First(&entry).Error; err != nil {
		c.JSON(http.StatusNotFound, web.NewErrorResponse("Time entry not found"))
		return
	}

	// Workers only see their own entries.
	if entry.WorkerID != middlewares.WorkerID(c) && !middlewares.IsPrivileged(c) {
		c.JSON(http.StatusForbidden, web.NewErrorResponse("not your entry"))
		return
	}

	var audits []model.AuditRecord
	if err := db.Where("entry_id = ?", entryID).
		Order("created_at").
		Find(&audits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse("Failed to fetch audit records"))
		return
	}

	auditDTOs := utils.Map(audits, func(a model.AuditRecord) AuditRecordDTO {
		return AuditRecordDTO{
			ID:         a.ID,
			EditedBy:   a.EditedBy,
			EditReason: a.EditReason,
			ForceEdit:  a.ForceEdit,
			CreatedAt:  a.CreatedAt,
		}
	})

	c.JSON(http.StatusOK, web.NewSuccessResponse(TimeEntryDetailDTO{
		TimeEntryDTO: toDTO(&entry),
		AuditRecords: auditDTOs,
	}))
}
