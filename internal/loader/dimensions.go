package loader

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lemonscanner/lemon-scanner/internal/datastore/entities"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// upsertBatchSize bounds the rows per INSERT statement of the dimension phase.
const upsertBatchSize = 500

// ModelKey identifies a model within its brand.
type ModelKey struct {
	BrandID uint
	Name    string
}

// Dimensions maps dimension keys to database ids for one load run.
type Dimensions struct {
	Brands   map[string]uint
	Models   map[ModelKey]uint
	Keywords map[string]uint
}

// ModelID resolves a manufacturer and model name to a model id.
func (d *Dimensions) ModelID(manufacturer, model string) (uint, bool) {
	brandID, ok := d.Brands[manufacturer]
	if !ok {
		return 0, false
	}
	id, ok := d.Models[ModelKey{BrandID: brandID, Name: model}]
	return id, ok
}

// BuildDimensions upserts the brands, models and keywords referenced by
// records and the vocabulary, re-reading each table after its upsert. Any
// failure is fatal to the run.
func BuildDimensions(ctx context.Context, tx *gorm.DB, records []recall.Record, v *vocab.Vocabulary) (*Dimensions, error) {
	tx = tx.WithContext(ctx)
	dims := &Dimensions{}

	if err := upsertBrands(tx, records); err != nil {
		return nil, dimensionError(err, "brands")
	}
	brands, err := readBrands(tx)
	if err != nil {
		return nil, dimensionError(err, "brands")
	}
	dims.Brands = brands

	if err := upsertModels(tx, records, dims.Brands); err != nil {
		return nil, dimensionError(err, "models")
	}
	models, err := readModels(tx)
	if err != nil {
		return nil, dimensionError(err, "models")
	}
	dims.Models = models

	if err := upsertKeywords(tx, v.Keywords); err != nil {
		return nil, dimensionError(err, "keywords")
	}
	keywords, err := readKeywords(tx)
	if err != nil {
		return nil, dimensionError(err, "keywords")
	}
	dims.Keywords = keywords

	return dims, nil
}

func upsertBrands(tx *gorm.DB, records []recall.Record) error {
	var names []string
	seen := make(map[string]bool)
	for i := range records {
		name := records[i].Manufacturer
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)

	rows := make([]entities.Brand, 0, len(names))
	for _, name := range names {
		rows = append(rows, entities.Brand{Name: name})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_name"}},
		DoNothing: true,
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

func readBrands(tx *gorm.DB) (map[string]uint, error) {
	var rows []entities.Brand
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

func upsertModels(tx *gorm.DB, records []recall.Record, brands map[string]uint) error {
	var keys []ModelKey
	seen := make(map[ModelKey]bool)
	for i := range records {
		brandID, ok := brands[records[i].Manufacturer]
		if !ok || records[i].Model == "" {
			continue
		}
		k := ModelKey{BrandID: brandID, Name: records[i].Model}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}

	rows := make([]entities.Model, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, entities.Model{BrandID: k.BrandID, Name: k.Name})
	}
	return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand_id"}, {Name: "model_name"}},
		DoNothing: true,
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

func readModels(tx *gorm.DB) (map[ModelKey]uint, error) {
	var rows []entities.Model
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[ModelKey]uint, len(rows))
	for _, r := range rows {
		ids[ModelKey{BrandID: r.BrandID, Name: r.Name}] = r.ID
	}
	return ids, nil
}

func upsertKeywords(tx *gorm.DB, keywords []vocab.Keyword) error {
	if len(keywords) == 0 {
		return nil
	}
	rows := make([]entities.Keyword, 0, len(keywords))
	for _, kw := range keywords {
		rows = append(rows, entities.Keyword{Text: kw.Text, Description: kw.Description})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "keyword_text"}},
		DoUpdates: clause.AssignmentColumns([]string{"keyword_desc"}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
}

func readKeywords(tx *gorm.DB) (map[string]uint, error) {
	var rows []entities.Keyword
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.Text] = r.ID
	}
	return ids, nil
}

func dimensionError(err error, phase string) error {
	return errors.New(fmt.Errorf("dimension phase %s failed: %w", phase, err)).
		Component("loader").
		Category(errors.CategoryDatabase).
		Context("phase", phase).
		Build()
}
