package dto

import (
	"taskboard/domain/models"
)

func UserToUserResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		Color:     user.Color,
		CreatedAt: user.CreatedAt,
	}
}

func UsersToUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *UserToUserResponse(&users[i]))
	}
	return out
}

func TaskToTaskResponse(task *models.Task) *TaskResponse {
	if task == nil {
		return nil
	}
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return &TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		BoardID:     task.BoardID,
		ColumnID:    task.ColumnID,
		Order:       task.Order,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Tags:        tags,
		Assignees:   UsersToUserResponses(task.Assignees),
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func TasksToTaskResponses(tasks []*models.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, *TaskToTaskResponse(t))
	}
	return out
}

func ColumnToColumnResponse(column *models.Column) *ColumnResponse {
	if column == nil {
		return nil
	}
	return &ColumnResponse{
		ID:        column.ID,
		BoardID:   column.BoardID,
		Title:     column.Title,
		Color:     column.Color,
		Order:     column.Order,
		CreatedAt: column.CreatedAt,
		UpdatedAt: column.UpdatedAt,
	}
}

func BoardToBoardResponse(board *models.Board) *BoardResponse {
	if board == nil {
		return nil
	}
	columns := make([]ColumnResponse, 0, len(board.Columns))
	for i := range board.Columns {
		columns = append(columns, *ColumnToColumnResponse(&board.Columns[i]))
	}
	return &BoardResponse{
		ID:          board.ID,
		Title:       board.Title,
		Slug:        board.Slug,
		Description: board.Description,
		OwnerID:     board.OwnerID,
		Members:     UsersToUserResponses(board.Members),
		Columns:     columns,
		CreatedAt:   board.CreatedAt,
		UpdatedAt:   board.UpdatedAt,
	}
}

func CreateTaskRequestToTask(req *CreateTaskRequest) *models.Task {
	return &models.Task{
		Title:       req.Title,
		Description: req.Description,
		BoardID:     req.BoardID,
		ColumnID:    req.ColumnID,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	}
}
