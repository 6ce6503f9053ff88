package models

import "time"

// Favorite marks a contractor as starred by a recruiter. At most one record
// exists per (TechID, RecruiterID) pair.
type Favorite struct {
	ID          string    `bson:"_id" json:"id" gorm:"primaryKey;type:text"`
	TechID      string    `bson:"techId" json:"techId" gorm:"column:tech_id;not null;uniqueIndex:uniq_favorite_pair,priority:1"`
	RecruiterID string    `bson:"recruiterId" json:"recruiterId" gorm:"column:recruiter_id;not null;uniqueIndex:uniq_favorite_pair,priority:2;index:idx_favorites_recruiter"`
	CreatedAt   time.Time `bson:"createdAt,omitempty" json:"createdAt" gorm:"column:created_at"`
}

func (Favorite) TableName() string { return "favorites" }
