// Package entities defines the GORM entity models of the recall schema.
//
// # Dimensions
//
//   - Brand: canonical manufacturer, unique by name
//   - Model: vehicle line, unique by (brand, name)
//   - Keyword: tagging vocabulary, unique by text
//
// # Facts
//
//   - Recall: one consolidated recall incident of a model
//   - RecallKeyword: keyword tags of a recall
//
// Table and column names are part of the read contract consumed by the
// dashboard and are fixed through TableName and column tags.
package entities
