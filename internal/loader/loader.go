// Package loader reconciles recall records against the relational schema:
// it upserts the brand, model and keyword dimensions, writes recall facts
// keyed by content and tags new recalls with the keywords in their reason.
package loader

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lemonscanner/lemon-scanner/internal/datastore/entities"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability/metrics"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// rowSavepoint isolates the statements of one record inside the run transaction.
const rowSavepoint = "recall_row"

// Loader writes recall records to the store in one transaction per run.
type Loader struct {
	db      *gorm.DB
	vocab   *vocab.Vocabulary
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// New creates a Loader. metrics may be nil.
func New(db *gorm.DB, v *vocab.Vocabulary, log logger.Logger, m *metrics.PipelineMetrics) *Loader {
	return &Loader{db: db, vocab: v, log: log, metrics: m}
}

// LoadFile reads the requested sheets of a workbook (every sheet when sheets
// is empty) or a CSV file, preprocesses each table and loads the records.
// Missing sheets are logged and skipped.
func (l *Loader) LoadFile(ctx context.Context, path, encoding string, sheets []string) (*Stats, error) {
	start := time.Now()
	log := l.log.WithContext(ctx)

	tables, missing, err := tabular.ReadFile(path, encoding, sheets)
	for _, name := range missing {
		log.Warn("sheet not found, skipping", logger.String("path", path), logger.String("sheet", name))
	}
	if err != nil {
		l.recordRun(nil, err, start)
		return nil, err
	}

	var records []recall.Record
	var dropped int
	for i := range tables {
		recs, prep, err := Preprocess(&tables[i])
		if err != nil {
			l.recordRun(nil, err, start)
			return nil, err
		}
		if prep.RateAbsent {
			log.Debug("correction rate column absent, using 0", logger.String("table", tables[i].Name))
		}
		log.Debug("preprocessed table",
			logger.String("table", tables[i].Name),
			logger.Int("rows_read", prep.RowsRead),
			logger.Int("dropped_reason", prep.DroppedReason))
		dropped += prep.DroppedReason
		records = append(records, recs...)
	}

	stats, err := l.Load(ctx, records)
	if stats != nil {
		stats.DroppedReason = dropped
		l.recordRows(metrics.JobLoad, "dropped_reason", dropped)
	}
	return stats, err
}

// Load upserts the dimensions referenced by records, then writes one recall
// per record. Dimension failures roll back the run; a failing record is
// rolled back to its savepoint and counted as skipped_error.
func (l *Loader) Load(ctx context.Context, records []recall.Record) (stats *Stats, err error) {
	start := time.Now()
	log := l.log.WithContext(ctx)
	stats = &Stats{Records: len(records)}
	defer func() {
		l.recordRun(stats, err, start)
	}()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dims, err := BuildDimensions(ctx, tx, records, l.vocab)
		if err != nil {
			return err
		}
		stats.Brands = len(dims.Brands)
		stats.Models = len(dims.Models)
		stats.Keywords = len(dims.Keywords)
		log.Info("dimensions ready",
			logger.Int("brands", stats.Brands),
			logger.Int("models", stats.Models),
			logger.Int("keywords", stats.Keywords))

		for i := range records {
			if err := ctx.Err(); err != nil {
				return errors.New(err).
					Component("loader").
					Category(errors.CategoryProcessing).
					Context("row", i).
					Build()
			}
			outcome, tags, rowErr := l.loadRecord(tx, dims, &records[i])
			if rowErr != nil {
				log.Warn("row skipped",
					logger.Int("row", i),
					logger.String("manufacturer", records[i].Manufacturer),
					logger.String("model", records[i].Model),
					logger.Error(rowErr))
			}
			stats.record(outcome)
			stats.Tags += tags
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	log.Info("load complete",
		logger.Int("records", stats.Records),
		logger.Int("inserted", stats.Count(OutcomeInserted)),
		logger.Int("refreshed", stats.Count(OutcomeRefreshed)),
		logger.Int("skipped_unresolved_model", stats.Count(OutcomeUnresolvedModel)),
		logger.Int("skipped_no_id", stats.Count(OutcomeNoID)),
		logger.Int("skipped_error", stats.Count(OutcomeError)),
		logger.Int("tags", stats.Tags),
		logger.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// loadRecord writes one recall fact and, when it is new, its keyword tags.
func (l *Loader) loadRecord(tx *gorm.DB, dims *Dimensions, rec *recall.Record) (Outcome, int, error) {
	modelID, ok := dims.ModelID(rec.Manufacturer, rec.Model)
	if !ok {
		return OutcomeUnresolvedModel, 0, nil
	}

	if err := tx.SavePoint(rowSavepoint).Error; err != nil {
		return OutcomeError, 0, err
	}

	outcome, tags, err := l.writeRecall(tx, dims, modelID, rec)
	if err != nil {
		if rbErr := tx.RollbackTo(rowSavepoint).Error; rbErr != nil {
			return OutcomeError, 0, errors.Join(err, rbErr)
		}
		outcome, tags = OutcomeError, 0
	}
	// Release so savepoints do not pile up over a run.
	if relErr := tx.Exec("RELEASE SAVEPOINT " + rowSavepoint).Error; relErr != nil && err == nil {
		l.log.Debug("release savepoint failed", logger.Error(relErr))
	}
	return outcome, tags, err
}

func (l *Loader) writeRecall(tx *gorm.DB, dims *Dimensions, modelID uint, rec *recall.Record) (Outcome, int, error) {
	fact := entities.Recall{
		ModelID:         modelID,
		Reason:          rec.Reason,
		ProdFrom:        rec.ProdFrom,
		ProdTo:          rec.ProdTo,
		RecallDate:      rec.RecallDate,
		RecallCount:     rec.RecallCount,
		CorrectionCount: rec.CorrectionCount,
		CorrectionRate:  rec.CorrectionRate,
		NaturalKey:      NaturalKey(modelID, rec.Reason, rec.ProdFrom, rec.ProdTo, rec.RecallDate),
	}

	var existing int64
	if err := tx.Model(&entities.Recall{}).Where("natural_key = ?", fact.NaturalKey).Count(&existing).Error; err != nil {
		return OutcomeError, 0, err
	}

	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "natural_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "recall_count"}),
	}).Create(&fact).Error
	if err != nil {
		return OutcomeError, 0, err
	}

	switch {
	case existing > 0:
		return OutcomeRefreshed, 0, nil
	case fact.ID == 0:
		return OutcomeNoID, 0, nil
	}

	tags, err := l.tagRecall(tx, dims, fact.ID, fact.Reason)
	if err != nil {
		return OutcomeError, 0, err
	}
	return OutcomeInserted, tags, nil
}

// tagRecall links a recall to every vocabulary keyword contained in reason.
func (l *Loader) tagRecall(tx *gorm.DB, dims *Dimensions, recallID uint, reason string) (int, error) {
	var links []entities.RecallKeyword
	for _, kw := range l.vocab.MatchKeywords(reason) {
		keywordID, ok := dims.Keywords[kw.Text]
		if !ok {
			continue
		}
		links = append(links, entities.RecallKeyword{RecallID: recallID, KeywordID: keywordID})
	}
	if len(links) == 0 {
		return 0, nil
	}
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	if err != nil {
		return 0, err
	}
	return len(links), nil
}

func (l *Loader) recordRows(job, outcome string, n int) {
	if l.metrics != nil {
		l.metrics.RecordRows(job, outcome, n)
	}
}

func (l *Loader) recordRun(stats *Stats, err error, start time.Time) {
	if l.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if stats != nil && err == nil {
		for _, o := range Outcomes() {
			l.metrics.RecordRows(metrics.JobLoad, o.String(), stats.Count(o))
		}
		l.metrics.SetOutputRows(metrics.JobLoad, stats.Count(OutcomeInserted)+stats.Count(OutcomeRefreshed))
	}
	l.metrics.RecordRun(metrics.JobLoad, status, time.Since(start), time.Now())
}
