package models

import (
	"time"
)

// CoinTransaction is the append-only audit trail of student coin
// mutations. Amount is signed: positive for awards, negative for
// spends and drops.
type CoinTransaction struct {
	ID                uint      `gorm:"primaryKey"`
	StudentID         uint      `gorm:"not null;index"`
	Amount            int64     `gorm:"not null"`
	TransactionType   string    `gorm:"type:varchar(50);not null;index"`
	Reason            string    `gorm:"type:text"`
	RelatedEntityType string    `gorm:"type:varchar(50)"`
	RelatedEntityID   uint      `gorm:"default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}

// CreditTransaction mirrors CoinTransaction for teacher credits.
type CreditTransaction struct {
	ID                uint      `gorm:"primaryKey"`
	TeacherID         uint      `gorm:"not null;index"`
	Amount            int64     `gorm:"not null"`
	TransactionType   string    `gorm:"type:varchar(50);not null;index"`
	Reason            string    `gorm:"type:text"`
	RelatedEntityType string    `gorm:"type:varchar(50)"`
	RelatedEntityID   uint      `gorm:"default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index"`
}

// Coin transaction type constants
const (
	TxTypeTeacherAward   = "teacher_award"
	TxTypeTeacherRemoval = "teacher_removal"
	TxTypeShopPurchase   = "shop_purchase"
	TxTypePurchaseRefund = "purchase_refund"
	TxTypeMysteryBall    = "mystery_ball"
	TxTypeEventReward    = "event_reward"
	TxTypeHomeworkReward = "homework_reward"
	TxTypeMirrorReplay   = "mirror_replay"
)

// Credit transaction type constants
const (
	TxTypeStartingGrant = "starting_grant"
	TxTypeAdminGrant    = "admin_grant"
	TxTypeActionSpend   = "action_spend"
)

// Related entity type constants
const (
	EntityTypeClass    = "class"
	EntityTypeSchool   = "school"
	EntityTypePokemon  = "pokemon"
	EntityTypeHomework = "homework"
	EntityTypeShop     = "shop_purchase"
)

func (CoinTransaction) TableName() string {
	return "coin_transactions"
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
