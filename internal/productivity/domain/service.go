package domain

import (
	"context"
	"errors"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	CalculateForUser(ctx context.Context, userID string, date civil.Date) (*Record, error)
	// CalculateForAllUsers commits each user independently. Per-user failures
	// are collected in the result; a cancelled context stops between users
	// and returns the partial result with the context error.
	CalculateForAllUsers(ctx context.Context, date *civil.Date) (*BatchResult, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type ListRequest struct {
	Date   civil.Date
	UserID string
	pagination.Pagination
}

type ListResponse struct {
	Records  []Record            `json:"records"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByUserDate(ctx context.Context, db *gorm.DB, userID, activityDate string) (*Record, error)
	ListByDate(ctx context.Context, db *gorm.DB, activityDate, userID, afterUserID string, limit int) ([]Record, error)
}

// EventSource reads activity events owned by the chat and task subsystems.
type EventSource interface {
	CountByType(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (map[string]int64, error)
}

// UserSource pages through all known users ordered by id.
type UserSource interface {
	ListUserIDs(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]string, error)
}

var (
	ErrInvalidUser = errors.New("invalid_user")
)
