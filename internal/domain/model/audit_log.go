package model

import "time"

// 在庫更新、注文ステータス更新など。
type AuditAction string

const (
	//在庫を更新した操作。
	AuditActionUpdateStock AuditAction = "UPDATE_STOCK"
	//注文ステータスを更新した操作。
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	//ユーザーの有効/無効を切り替えた操作。
	AuditActionUpdateUserStatus AuditAction = "UPDATE_USER_STATUS"
	//強制ログアウト。
	AuditActionForceLogout AuditAction = "FORCE_LOGOUT"

	AuditActionCreateProduct AuditAction = "CREATE_PRODUCT"
	AuditActionUpdateProduct AuditAction = "UPDATE_PRODUCT"
	AuditActionDeleteProduct AuditAction = "DELETE_PRODUCT"
)

// 何に対する操作か
type AuditResourceType string

const (
	//商品に対する操作。
	AuditResourceProduct AuditResourceType = "product"

	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"

	//ユーザーに対する操作。
	AuditResourceUser AuditResourceType = "user"
)

// 監査ログ（管理者操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
// SQLでもMongoDBでも同じ形で保存する（MongoDBでは_idを自動採番するのでIDは保存しない）。
type AuditLog struct {
	//IDは監査ログの主キー
	ID int64 `gorm:"primaryKey;autoIncrement" bson:"-" json:"id,omitempty"`

	//操作したユーザー（主に管理者）のID。
	ActorUserID int64 `gorm:"not null;index" bson:"actor_user_id" json:"actor_user_id"`

	//Actionは操作の種類（UPDATE_STOCK / UPDATE_ORDER_STATUS など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" bson:"action" json:"action"`

	//対象の種類（product / order / user）。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" bson:"resource_type" json:"resource_type"`

	//対象のID。
	ResourceID int64 `gorm:"not null;index" bson:"resource_id" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" bson:"before_json" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" bson:"after_json" json:"after_json"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" bson:"created_at" json:"created_at"`
}
