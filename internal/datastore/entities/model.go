package entities

// Model is a vehicle line of one brand.
type Model struct {
	ID      uint   `gorm:"column:model_id;primaryKey"`
	BrandID uint   `gorm:"column:brand_id;not null;uniqueIndex:idx_model_identity,priority:1"`
	Name    string `gorm:"column:model_name;type:varchar(200);not null;uniqueIndex:idx_model_identity,priority:2"`

	// Relationships
	Brand *Brand `gorm:"foreignKey:BrandID;references:ID"`
}

// TableName returns the table name for GORM.
func (Model) TableName() string {
	return "Model"
}
