package usecase

import (
	"context"
	"encoding/json"
	"time"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"
)

// 監査ログ1件分
type auditEntry struct {
	actorUserID  int64
	action       model.AuditAction
	resourceType model.AuditResourceType
	resourceID   int64
	before       interface{}
	after        interface{}
}

// before/afterはJSON文字列にして保存する
func writeAudit(ctx context.Context, auditRepo repo.AuditLogRepository, now time.Time, e auditEntry) error {
	beforeJSON, err := toAuditJSON(e.before)
	if err != nil {
		return err
	}
	afterJSON, err := toAuditJSON(e.after)
	if err != nil {
		return err
	}

	return auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  e.actorUserID,
		Action:       e.action,
		ResourceType: e.resourceType,
		ResourceID:   e.resourceID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    now,
	})
}

func toAuditJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
