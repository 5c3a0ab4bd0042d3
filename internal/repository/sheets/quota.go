package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultRange is the sheet range holding one quota row per user
const DefaultRange = "Activity!A:E"

// Column order of a quota row
const (
	colUserID = iota
	colTotalUsage
	colLastUsedAt
	colTotalTokens
	colDailyTokens
	rowWidth
)

// valuesAPI is the subset of the Sheets values API the repository needs
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error)
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error
}

// QuotaRepository stores quota records as rows of a Google Sheet
type QuotaRepository struct {
	values        valuesAPI
	spreadsheetID string
	dataRange     string
	logger        *logrus.Logger
	now           func() time.Time

	// Save rewrites the whole range, so writers are serialized
	mu sync.Mutex
}

// NewQuotaRepository connects to the Sheets API with a service account credentials file
func NewQuotaRepository(ctx context.Context, spreadsheetID, credentialsPath, dataRange string, logger *logrus.Logger) (*QuotaRepository, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newQuotaRepository(&serviceValues{svc: svc}, spreadsheetID, dataRange, logger), nil
}

func newQuotaRepository(values valuesAPI, spreadsheetID, dataRange string, logger *logrus.Logger) *QuotaRepository {
	if dataRange == "" {
		dataRange = DefaultRange
	}
	return &QuotaRepository{
		values:        values,
		spreadsheetID: spreadsheetID,
		dataRange:     dataRange,
		logger:        logging.OrDefault(logger),
		now:           time.Now,
	}
}

// GetByUserID scans the sheet for the user's row.
// Malformed rows are skipped with a warning; an unknown user yields nil, nil.
func (r *QuotaRepository) GetByUserID(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	rows, err := r.values.Get(ctx, r.spreadsheetID, r.dataRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota sheet: %w", err)
	}

	for i, row := range rows {
		cells, ok := completeRow(row)
		if !ok {
			r.logger.WithFields(logrus.Fields{"row": i + 1, "cells": row}).Warn("Skipping incomplete quota row")
			continue
		}
		if cells[colUserID] != userID {
			continue
		}

		record, err := parseRow(cells)
		if err != nil {
			r.logger.WithError(err).WithField("row", i+1).Error("Skipping unparseable quota row")
			continue
		}
		return record, nil
	}

	return nil, nil
}

// List returns every well-formed quota row in sheet order
func (r *QuotaRepository) List(ctx context.Context) ([]*models.QuotaRecord, error) {
	rows, err := r.values.Get(ctx, r.spreadsheetID, r.dataRange)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota sheet: %w", err)
	}

	records := make([]*models.QuotaRecord, 0, len(rows))
	for i, row := range rows {
		cells, ok := completeRow(row)
		if !ok {
			continue
		}
		record, err := parseRow(cells)
		if err != nil {
			r.logger.WithError(err).WithField("row", i+1).Warn("Skipping unparseable quota row")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Save upserts the record's row and writes the whole range back sorted by user id
func (r *QuotaRepository) Save(ctx context.Context, record *models.QuotaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.values.Get(ctx, r.spreadsheetID, r.dataRange)
	if err != nil {
		return fmt.Errorf("failed to read quota sheet: %w", err)
	}

	byUser := make(map[string][]interface{}, len(rows)+1)
	for _, row := range rows {
		if len(row) < rowWidth {
			continue
		}
		byUser[cellString(row[colUserID])] = row
	}
	byUser[record.UserID] = r.formatRow(record)

	ids := make([]string, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([][]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, byUser[id])
	}

	if err := r.values.Update(ctx, r.spreadsheetID, r.dataRange, out); err != nil {
		return fmt.Errorf("failed to write quota sheet: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"user":  record.UserID,
		"daily": record.DailyTokensUsage,
		"total": record.TotalTokensUsage,
		"rows":  len(out),
	}).Debug("Saved quota record")

	return nil
}

func (r *QuotaRepository) formatRow(record *models.QuotaRecord) []interface{} {
	lastUsed := record.LastUsedAt
	if lastUsed == "" {
		lastUsed = r.now().UTC().Format(time.RFC3339Nano)
	}
	return []interface{}{
		record.UserID,
		strconv.Itoa(record.TotalUsage),
		lastUsed,
		strconv.Itoa(record.TotalTokensUsage),
		strconv.Itoa(record.DailyTokensUsage),
	}
}

// completeRow returns the first five cells as strings when all of them are non-empty
func completeRow(row []interface{}) ([]string, bool) {
	if len(row) < rowWidth {
		return nil, false
	}
	cells := make([]string, rowWidth)
	for i := 0; i < rowWidth; i++ {
		cells[i] = cellString(row[i])
		if cells[i] == "" {
			return nil, false
		}
	}
	return cells, true
}

func parseRow(cells []string) (*models.QuotaRecord, error) {
	totalUsage, err := strconv.Atoi(cells[colTotalUsage])
	if err != nil {
		return nil, fmt.Errorf("total usage %q: %w", cells[colTotalUsage], err)
	}
	totalTokens, err := strconv.Atoi(cells[colTotalTokens])
	if err != nil {
		return nil, fmt.Errorf("total tokens %q: %w", cells[colTotalTokens], err)
	}
	dailyTokens, err := strconv.Atoi(cells[colDailyTokens])
	if err != nil {
		return nil, fmt.Errorf("daily tokens %q: %w", cells[colDailyTokens], err)
	}

	return &models.QuotaRecord{
		UserID:           cells[colUserID],
		TotalUsage:       totalUsage,
		LastUsedAt:       cells[colLastUsedAt],
		TokensUsage:      totalTokens,
		DailyTokensUsage: dailyTokens,
		TotalTokensUsage: totalTokens,
	}, nil
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// serviceValues adapts *sheets.Service to valuesAPI
type serviceValues struct {
	svc *sheets.Service
}

func (s *serviceValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
