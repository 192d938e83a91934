package audit

import (
	"context"

	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// Audit actions.
const (
	ActionUserLogin     = "user.login"
	ActionUserUpdate    = "user.update"
	ActionUserDelete    = "user.delete"
	ActionStreamCreate  = "stream.create"
	ActionStreamUpdate  = "stream.update"
	ActionStreamDelete  = "stream.delete"
	ActionPaymentCreate = "payment.create"
	ActionPaymentStatus = "payment.status"
	ActionCacheClear    = "cache.clear"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldResource = "resource_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit entry via the context logger.
func Log(ctx context.Context, action, userID, resourceID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldResource, resourceID).
		Msg(msg)
}

// LogWithDetail emits an audit entry with an extra detail field.
func LogWithDetail(ctx context.Context, action, userID, resourceID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldResource, resourceID).
		Str(FieldDetail, detail).
		Msg(msg)
}
