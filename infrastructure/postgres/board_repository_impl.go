package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/domain/models"
	"taskboard/domain/repositories"
)

type BoardRepositoryImpl struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) repositories.BoardRepository {
	return &BoardRepositoryImpl{db: db}
}

func orderedColumns(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

func (r *BoardRepositoryImpl) Create(ctx context.Context, board *models.Board) error {
	// members ต้องมีอยู่แล้ว สร้างแค่ join rows; columns สร้างพร้อม board
	return conn(ctx, r.db).Omit("Members.*").Create(board).Error
}

// LockForUpdate ตอบ gorm.ErrRecordNotFound ถ้าไม่มี board
func (r *BoardRepositoryImpl) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if supportsRowLocks(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var board models.Board
	return db.Select("id").Where("id = ?", id).First(&board).Error
}

func (r *BoardRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Board, error) {
	var board models.Board
	err := conn(ctx, r.db).
		Preload("Members").
		Preload("Columns", orderedColumns).
		Where("id = ?", id).
		First(&board).Error
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *BoardRepositoryImpl) List(ctx context.Context) ([]*models.Board, error) {
	var boards []*models.Board
	err := conn(ctx, r.db).
		Preload("Members").
		Preload("Columns", orderedColumns).
		Order("created_at DESC").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepositoryImpl) ListByMember(ctx context.Context, userID uuid.UUID) ([]*models.Board, error) {
	var boards []*models.Board
	db := conn(ctx, r.db)
	memberOf := db.Table("board_members").Select("board_id").Where("user_id = ?", userID)
	err := db.
		Preload("Members").
		Preload("Columns", orderedColumns).
		Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at DESC").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return conn(ctx, r.db).Model(&models.Board{}).Where("id = ?", id).Updates(fields).Error
}

func (r *BoardRepositoryImpl) ReplaceMembers(ctx context.Context, board *models.Board, users []*models.User) error {
	assoc := conn(ctx, r.db).Model(board).Association("Members")
	if len(users) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(users)
}

func (r *BoardRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Select("Members").Delete(&models.Board{ID: id}).Error
}
