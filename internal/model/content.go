package model

import "time"

// Standard is a top-level curriculum grouping. The catalog back office owns
// these rows; this service only reads them to label analytics entries.
type Standard struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"not null;size:200"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type Subject struct {
	ID         string    `gorm:"primaryKey;size:36"`
	StandardID string    `gorm:"not null;size:36;index"`
	Name       string    `gorm:"not null;size:200"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

type Chapter struct {
	ID        string    `gorm:"primaryKey;size:36"`
	SubjectID string    `gorm:"not null;size:36;index"`
	Name      string    `gorm:"not null;size:200"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
