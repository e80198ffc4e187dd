package journal

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
)

// Entry is the local write-ahead record of one order commit against the store.
type Entry struct {
	ID            uuid.UUID          `gorm:"column:id;type:varchar(36);primaryKey"`
	OrderID       string             `gorm:"column:order_id;not null"`
	Customer      string             `gorm:"column:customer;not null"`
	OrderType     enums.OrderType    `gorm:"column:order_type;not null"`
	PoolRef       *string            `gorm:"column:pool_ref"`
	Cart          string             `gorm:"column:cart;not null"`
	OrderRecordID *string            `gorm:"column:order_record_id"`
	ItemRecordIDs StringList         `gorm:"column:item_record_ids;not null"`
	State         enums.JournalState `gorm:"column:state;not null"`
	LastError     *string            `gorm:"column:last_error"`
	Attempts      int                `gorm:"column:attempts;not null;default:0"`
	CreatedAt     time.Time          `gorm:"column:created_at"`
	UpdatedAt     time.Time          `gorm:"column:updated_at"`
}

func (Entry) TableName() string { return "order_journal" }

// StringList persists a list of record ids as a postgres array literal
// ({"recA","recB"}) in a text column, readable on both drivers.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return pq.StringArray(l).Value()
}

func (l *StringList) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("StringList: %w", err)
	}
	if arr == nil {
		arr = pq.StringArray{}
	}
	*l = StringList(arr)
	return nil
}
