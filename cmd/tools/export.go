package main

import (
	"fmt"
	"io"

	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Quotas"

var exportHeader = []interface{}{"user_id", "total_usage", "last_used_at", "total_tokens", "daily_tokens"}

// writeQuotaWorkbook writes one header row plus one row per record as an .xlsx workbook
func writeQuotaWorkbook(records []*models.QuotaRecord, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			record.UserID,
			record.TotalUsage,
			record.LastUsedAt,
			record.TotalTokensUsage,
			record.DailyTokensUsage,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}
