package entities

// Brand is a canonical manufacturer.
type Brand struct {
	ID   uint   `gorm:"column:brand_id;primaryKey"`
	Name string `gorm:"column:brand_name;type:varchar(100);not null;uniqueIndex:idx_brand_name"`
}

// TableName returns the table name for GORM.
func (Brand) TableName() string {
	return "Brand"
}
