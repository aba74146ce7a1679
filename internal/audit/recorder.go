package audit

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
)

// Recorder appends immutable action records whenever a mutation occurs.
// Recording is best-effort: a failed append is logged and swallowed so it
// never aborts the primary mutation.
type Recorder struct {
	logs   db.AuditLogCollection
	logger *log.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(logs db.AuditLogCollection, logger *log.Logger) *Recorder {
	return &Recorder{
		logs:   logs,
		logger: logger,
	}
}

// Log appends an audit entry for an action performed by actorID.
func (r *Recorder) Log(ctx context.Context, actorID string, action models.AuditAction, entityType, entityID string, details map[string]any) {
	if actorID == "" {
		r.logger.Warn("audit entry skipped: missing actor")
		return
	}
	if details == nil {
		details = map[string]any{}
	}

	entry := models.AuditLog{
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		PerformedBy: actorID,
		Details:     details,
	}

	if err := r.logs.InsertAuditLog(ctx, entry); err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error("failed to append audit entry")
	}
}
