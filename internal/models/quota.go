package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

const (
	// DefaultDailyTokenLimit is the per-user daily token ceiling.
	DefaultDailyTokenLimit = 20000

	// DefaultResetOffsetHours is the UTC offset of the reference timezone (JST).
	DefaultResetOffsetHours = 9

	dateLayout = "2006-01-02"
)

// ErrQuotaExceeded is returned by CheckDailyBudget when the daily ceiling has been passed
var ErrQuotaExceeded = errors.New("daily token limit exceeded")

// QuotaPolicy holds the daily ceiling and the timezone used to decide what "today" is
type QuotaPolicy struct {
	DailyTokenLimit int
	Location        *time.Location
}

// DefaultQuotaPolicy returns the 20000 tokens / +09:00 policy
func DefaultQuotaPolicy() QuotaPolicy {
	return NewQuotaPolicy(DefaultDailyTokenLimit, DefaultResetOffsetHours)
}

// NewQuotaPolicy builds a policy with a fixed-offset reference zone.
// Non-positive limits fall back to DefaultDailyTokenLimit.
func NewQuotaPolicy(dailyLimit, offsetHours int) QuotaPolicy {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyTokenLimit
	}
	name := fmt.Sprintf("UTC%+03d:00", offsetHours)
	return QuotaPolicy{
		DailyTokenLimit: dailyLimit,
		Location:        time.FixedZone(name, offsetHours*60*60),
	}
}

// QuotaRecord represents the persisted usage counters of one chat user
type QuotaRecord struct {
	UserID           string `json:"user_id"`
	TotalUsage       int    `json:"total_usage"`
	LastUsedAt       string `json:"last_used_at,omitempty"`
	TokensUsage      int    `json:"tokens_usage"`
	DailyTokensUsage int    `json:"daily_tokens_usage"`
	TotalTokensUsage int    `json:"total_tokens_usage"`
}

// NewQuotaRecord creates a zero-valued record for a user seen for the first time
func NewQuotaRecord(userID string) *QuotaRecord {
	return &QuotaRecord{UserID: userID}
}

// ResetDailyIfNeeded zeroes the daily counter when the last activity happened on
// another calendar day of the policy's zone, then stamps LastUsedAt with now.
//
// An unparseable LastUsedAt is treated as a rollover. The parse error is still
// returned so the caller can log it; the record is fully updated either way.
func (q *QuotaRecord) ResetDailyIfNeeded(now time.Time, policy QuotaPolicy) error {
	loc := policy.location()
	now = now.In(loc)

	var parseErr error
	if q.LastUsedAt != "" {
		last, err := dateparse.ParseIn(q.LastUsedAt, loc)
		if err != nil {
			q.DailyTokensUsage = 0
			parseErr = fmt.Errorf("failed to parse last_used_at %q: %w", q.LastUsedAt, err)
		} else if last.In(loc).Format(dateLayout) != now.Format(dateLayout) {
			q.DailyTokensUsage = 0
		}
	}

	q.LastUsedAt = now.Format(time.RFC3339Nano)
	return parseErr
}

// CheckDailyBudget fails with ErrQuotaExceeded once the daily usage is above the limit
func (q *QuotaRecord) CheckDailyBudget(policy QuotaPolicy) error {
	limit := policy.DailyTokenLimit
	if limit <= 0 {
		limit = DefaultDailyTokenLimit
	}
	if q.DailyTokensUsage > limit {
		return fmt.Errorf("%w: %d of %d tokens used", ErrQuotaExceeded, q.DailyTokensUsage, limit)
	}
	return nil
}

// AddUsage accounts one interaction that consumed the given number of tokens
func (q *QuotaRecord) AddUsage(tokens int) {
	q.TotalUsage++
	q.DailyTokensUsage += tokens
	q.TotalTokensUsage += tokens
	q.TokensUsage = q.TotalTokensUsage
}

func (p QuotaPolicy) location() *time.Location {
	if p.Location == nil {
		return DefaultQuotaPolicy().Location
	}
	return p.Location
}
