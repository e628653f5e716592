package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/domain/models"
	"taskboard/domain/repositories"
)

type ColumnRepositoryImpl struct {
	db *gorm.DB
}

func NewColumnRepository(db *gorm.DB) repositories.ColumnRepository {
	return &ColumnRepositoryImpl{db: db}
}

func (r *ColumnRepositoryImpl) Create(ctx context.Context, column *models.Column) error {
	return conn(ctx, r.db).Create(column).Error
}

func (r *ColumnRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Column, error) {
	var column models.Column
	if err := conn(ctx, r.db).Where("id = ?", id).First(&column).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

func (r *ColumnRepositoryImpl) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Column, error) {
	var columns []*models.Column
	err := conn(ctx, r.db).Where("board_id = ?", boardID).Order("position ASC, created_at ASC").Find(&columns).Error
	return columns, err
}

func (r *ColumnRepositoryImpl) CountByBoard(ctx context.Context, boardID uuid.UUID) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Column{}).Where("board_id = ?", boardID).Count(&count).Error
	return count, err
}

func (r *ColumnRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return conn(ctx, r.db).Model(&models.Column{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ColumnRepositoryImpl) ShiftOrder(ctx context.Context, boardID uuid.UUID, from, delta int) error {
	return conn(ctx, r.db).Model(&models.Column{}).
		Where("board_id = ? AND position >= ?", boardID, from).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

func (r *ColumnRepositoryImpl) LockForUpdate(ctx context.Context, ids ...uuid.UUID) error {
	db := conn(ctx, r.db)
	if !supportsRowLocks(db) || len(ids) == 0 {
		// sqlite: write transaction ล็อกทั้งไฟล์อยู่แล้ว
		return nil
	}
	// ORDER BY id: ทุก transaction ล็อกตามลำดับเดียวกัน ป้องกัน deadlock
	var locked []uuid.UUID
	return db.Model(&models.Column{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Pluck("id", &locked).Error
}

func (r *ColumnRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Where("id = ?", id).Delete(&models.Column{}).Error
}

func (r *ColumnRepositoryImpl) DeleteByBoard(ctx context.Context, boardID uuid.UUID) error {
	return conn(ctx, r.db).Where("board_id = ?", boardID).Delete(&models.Column{}).Error
}
