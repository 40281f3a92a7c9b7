package entities

// RecallKeyword tags a recall with a keyword found in its reason.
type RecallKeyword struct {
	RecallID  uint `gorm:"column:recall_id;primaryKey;autoIncrement:false"`
	KeywordID uint `gorm:"column:keyword_id;primaryKey;autoIncrement:false;index:idx_junction_keyword"`

	// Relationships
	Recall  *Recall  `gorm:"foreignKey:RecallID;references:ID;constraint:OnDelete:CASCADE"`
	Keyword *Keyword `gorm:"foreignKey:KeywordID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (RecallKeyword) TableName() string {
	return "Recall_Keyword_Junction"
}
