package entities

// Keyword is one entry of the tagging vocabulary.
type Keyword struct {
	ID          uint   `gorm:"column:keyword_id;primaryKey"`
	Text        string `gorm:"column:keyword_text;type:varchar(50);not null;uniqueIndex:idx_keyword_text"`
	Description string `gorm:"column:keyword_desc;type:varchar(255)"`
}

// TableName returns the table name for GORM.
func (Keyword) TableName() string {
	return "Keyword"
}
