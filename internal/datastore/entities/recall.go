package entities

import "time"

// Recall is one consolidated recall incident of a model.
// NaturalKey identifies the incident by content so reloads update in place.
type Recall struct {
	ID              uint       `gorm:"column:recall_id;primaryKey"`
	ModelID         uint       `gorm:"column:model_id;not null;index:idx_recall_model"`
	Reason          string     `gorm:"column:reason;type:text;not null"`
	ProdFrom        *time.Time `gorm:"column:prod_from;type:date"`
	ProdTo          *time.Time `gorm:"column:prod_to;type:date"`
	RecallDate      *time.Time `gorm:"column:recall_date;type:date;index:idx_recall_date"`
	RecallCount     int        `gorm:"column:recall_count;not null"`
	CorrectionCount int        `gorm:"column:correction_count;not null"`
	CorrectionRate  float64    `gorm:"column:correction_rate;not null"`
	NaturalKey      string     `gorm:"column:natural_key;type:char(64);not null;uniqueIndex:idx_recall_natural_key"`

	// Relationships
	Model *Model `gorm:"foreignKey:ModelID;references:ID"`
}

// TableName returns the table name for GORM.
func (Recall) TableName() string {
	return "Recall"
}
