package models

import (
	"context"
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/estate_backend/dedup"
	"gorm.io/gorm"
)

var _ dedup.RecordStore = (*UnitStore)(nil)

// UnitStore exposes the units table to the duplicate resolver.
type UnitStore struct {
	DB *gorm.DB
}

func NewUnitStore(db *gorm.DB) *UnitStore {
	return &UnitStore{DB: db}
}

func (s *UnitStore) ListAll(ctx context.Context) ([]dedup.Record, error) {
	if s.DB == nil {
		return nil, errors.New("database not initialized")
	}
	var units []Unit
	if err := s.DB.WithContext(ctx).Order("id").Find(&units).Error; err != nil {
		return nil, err
	}
	records := make([]dedup.Record, 0, len(units))
	for _, u := range units {
		records = append(records, u.DedupRecord())
	}
	return records, nil
}

// DeleteByIDs deletes every id inside one transaction. Each id runs in its own savepoint,
// so a failing id (e.g. still referenced by a sale) only rolls back itself.
func (s *UnitStore) DeleteByIDs(ctx context.Context, ids []int) (dedup.DeleteResult, error) {
	var result dedup.DeleteResult
	if s.DB == nil {
		return result, errors.New("database not initialized")
	}
	if len(ids) == 0 {
		return result, nil
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var affected int64
			err := tx.Transaction(func(sp *gorm.DB) error {
				res := sp.Where("id = ?", id).Delete(&Unit{})
				affected = res.RowsAffected
				return res.Error
			})
			switch {
			case err != nil:
				result.Failed = append(result.Failed, dedup.DeleteFailure{ID: id, Reason: deleteFailureReason(err)})
			case affected == 0:
				result.Missing = append(result.Missing, id)
			default:
				result.Deleted = append(result.Deleted, id)
			}
		}
		return nil
	})
	if err != nil {
		// commit failed: nothing from this call is visible
		return dedup.DeleteResult{Failed: result.Failed}, err
	}
	return result, nil
}

func deleteFailureReason(err error) string {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1451 {
		return fmt.Sprintf("referenced by other records: %s", mysqlErr.Message)
	}
	return err.Error()
}
