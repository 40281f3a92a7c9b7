package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/datastore/entities"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// Counts holds the row count of every schema table.
type Counts struct {
	Brands    int64
	Models    int64
	Keywords  int64
	Recalls   int64
	Junctions int64
}

// CountRows counts the rows of every schema table.
func CountRows(ctx context.Context, db *gorm.DB) (Counts, error) {
	var c Counts
	targets := []struct {
		model any
		dest  *int64
	}{
		{&entities.Brand{}, &c.Brands},
		{&entities.Model{}, &c.Models},
		{&entities.Keyword{}, &c.Keywords},
		{&entities.Recall{}, &c.Recalls},
		{&entities.RecallKeyword{}, &c.Junctions},
	}
	for _, t := range targets {
		if err := db.WithContext(ctx).Model(t.model).Count(t.dest).Error; err != nil {
			return Counts{}, errors.New(fmt.Errorf("count %T: %w", t.model, err)).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Build()
		}
	}
	return c, nil
}

// Quote quotes a table or column identifier for raw SQL fragments in the
// dialect of db. Schema table names are capitalized, so unquoted names would
// be folded to lower case by PostgreSQL.
func Quote(db *gorm.DB, name string) string {
	return db.Statement.Quote(name)
}
