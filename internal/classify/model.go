package classify

import "time"

// Each index table is a marker set: one row per inmate on that side of a
// category pair. The whole set for a pair is cleared and rebuilt on every
// classification run, never incrementally updated.

// ChildAbuseIndex marks inmates on the child-abuse side.
type ChildAbuseIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ChildAbuseIndex) TableName() string {
	return "child_abuse_index"
}

// NonChildAbuseIndex marks the complement of the child-abuse side.
type NonChildAbuseIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (NonChildAbuseIndex) TableName() string {
	return "non_child_abuse_index"
}

// MurderIndex marks inmates on the murder side.
type MurderIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (MurderIndex) TableName() string {
	return "murder_index"
}

// NonMurderIndex marks the complement of the murder side.
type NonMurderIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (NonMurderIndex) TableName() string {
	return "non_murder_index"
}

// CannabisIndex marks inmates with a cannabis charge. Unlike the exhaustive
// pairs, the drugs sides are independent positive sets with no complement.
type CannabisIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (CannabisIndex) TableName() string {
	return "cannabis_index"
}

// CocaineFentanylIndex marks inmates with a cocaine or fentanyl charge.
type CocaineFentanylIndex struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	InmateID  uint      `gorm:"column:inmate_id;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (CocaineFentanylIndex) TableName() string {
	return "cocaine_fentanyl_index"
}
