package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/domain/models"
	"taskboard/domain/repositories"
)

type TaskRepositoryImpl struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) repositories.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

const canonicalTaskOrder = "position ASC, created_at ASC, id ASC"

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *models.Task) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(task).Error
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := conn(ctx, r.db).Preload("Assignees").Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepositoryImpl) ListByColumn(ctx context.Context, columnID uuid.UUID) ([]*models.Task, error) {
	var tasks []*models.Task
	err := conn(ctx, r.db).Preload("Assignees").Where("column_id = ?", columnID).Order(canonicalTaskOrder).Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*models.Task, error) {
	var tasks []*models.Task
	err := conn(ctx, r.db).Preload("Assignees").Where("board_id = ?", boardID).Order("column_id ASC, " + canonicalTaskOrder).Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Task, error) {
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}
	var tasks []*models.Task
	err := conn(ctx, r.db).Preload("Assignees").Where("id IN ?", ids).Order(canonicalTaskOrder).Find(&tasks).Error
	return tasks, err
}

func (r *TaskRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return conn(ctx, r.db).Model(&models.Task{}).Where("id = ?", id).Updates(fields).Error
}

func (r *TaskRepositoryImpl) ReplaceAssignees(ctx context.Context, task *models.Task, users []*models.User) error {
	assoc := conn(ctx, r.db).Model(task).Association("Assignees")
	if len(users) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(users)
}

func (r *TaskRepositoryImpl) ApplyOrder(ctx context.Context, updates []repositories.OrderUpdate) error {
	db := conn(ctx, r.db)
	now := time.Now().UTC()
	for _, u := range updates {
		fields := map[string]any{
			"column_id": u.ColumnID,
			"position":  u.Order,
		}
		if u.Touch {
			fields["updated_at"] = now
		}
		// UpdateColumns: ไม่แตะ updated_at ของ task ที่แค่เลื่อนตำแหน่ง
		if err := db.Model(&models.Task{}).Where("id = ?", u.ID).UpdateColumns(fields).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepositoryImpl) ShiftOrder(ctx context.Context, columnID uuid.UUID, from, delta int) error {
	return conn(ctx, r.db).Model(&models.Task{}).
		Where("column_id = ? AND position >= ?", columnID, from).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

func (r *TaskRepositoryImpl) NextOrder(ctx context.Context, columnID uuid.UUID) (int, error) {
	var max int
	err := conn(ctx, r.db).Model(&models.Task{}).
		Where("column_id = ?", columnID).
		Select("COALESCE(MAX(position), -1)").
		Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Select("Assignees").Delete(&models.Task{ID: id}).Error
}

func (r *TaskRepositoryImpl) DeleteByColumn(ctx context.Context, columnID uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Exec("DELETE FROM task_assignees WHERE task_id IN (SELECT id FROM tasks WHERE column_id = ?)", columnID).Error; err != nil {
		return err
	}
	return db.Where("column_id = ?", columnID).Delete(&models.Task{}).Error
}

func (r *TaskRepositoryImpl) DeleteByBoard(ctx context.Context, boardID uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Exec("DELETE FROM task_assignees WHERE task_id IN (SELECT id FROM tasks WHERE board_id = ?)", boardID).Error; err != nil {
		return err
	}
	return db.Where("board_id = ?", boardID).Delete(&models.Task{}).Error
}
