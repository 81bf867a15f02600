package docs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ComparisonBuilder renders the option comparison for an offer as an
// xlsx asset: one column per plan option, coverage features as rows.
type ComparisonBuilder struct {
	outputDir string
	logger    *zap.Logger
}

// NewComparisonBuilder creates a builder writing assets below outputDir
func NewComparisonBuilder(outputDir string, logger *zap.Logger) (*ComparisonBuilder, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create document output dir: %w", err)
	}
	return &ComparisonBuilder{
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// BuildComparisonDocument writes the comparison sheet and returns the
// asset path. Plans must be ordered like the offer's options.
func (b *ComparisonBuilder) BuildComparisonDocument(ctx context.Context, offer *entity.Offer, plans []*entity.Plan) (string, error) {
	if len(offer.Options) != len(plans) {
		return "", fmt.Errorf("offer has %d options but %d plans", len(offer.Options), len(plans))
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Comparison"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	b.setCell(f, sheet, "A1", "Option")
	b.setCell(f, sheet, "A2", "Plan")
	b.setCell(f, sheet, "A3", "Company")
	b.setCell(f, sheet, "A4", "Monthly premium")

	for i, option := range offer.Options {
		col, err := excelize.ColumnNumberToName(i + 2)
		if err != nil {
			return "", fmt.Errorf("column name: %w", err)
		}
		plan := plans[i]
		b.setCell(f, sheet, col+"1", option.OptionType)
		b.setCell(f, sheet, col+"2", plan.Name)
		b.setCell(f, sheet, col+"3", plan.Company)
		b.setCell(f, sheet, col+"4", fmt.Sprintf("%.2f", float64(plan.PremiumCents)/100))
	}

	for i, feature := range offer.DisplayedCoverageFeatures {
		cell := fmt.Sprintf("A%d", i+6)
		b.setCell(f, sheet, cell, feature)
	}

	if offer.NoteToCustomer != "" {
		row := len(offer.DisplayedCoverageFeatures) + 7
		b.setCell(f, sheet, fmt.Sprintf("A%d", row), offer.NoteToCustomer)
	}

	name := fmt.Sprintf("offer_comparison_%d_%s.xlsx", offer.OpportunityID, time.Now().UTC().Format("20060102150405"))
	path := filepath.Join(b.outputDir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save comparison document: %w", err)
	}

	b.logger.Info("Comparison document generated",
		zap.Int64("opportunity_id", offer.OpportunityID),
		zap.String("path", path))
	return path, nil
}

func (b *ComparisonBuilder) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		b.logger.Warn("Failed to set cell", zap.String("cell", cell), zap.Error(err))
	}
}
