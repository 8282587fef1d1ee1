package models

import "time"

// CounterKind separates badge and achievement counters.
type CounterKind string

const (
	CounterKindBadge       CounterKind = "badge"
	CounterKindAchievement CounterKind = "achievement"
)

// CatalogCounter tracks how many users hold a catalog item. It lives apart from
// the catalog rows so catalog replacement never touches it.
type CatalogCounter struct {
	Kind      CounterKind `gorm:"primaryKey;type:varchar(16)" json:"kind"`
	ItemID    string      `gorm:"primaryKey;type:varchar(128)" json:"item_id"`
	Count     int64       `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}
