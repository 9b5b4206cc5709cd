package sql

import (
	"aistudio/internal/entity"
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var errEmptyUserKey = errors.New("user id or email is empty")

// CreateUser 插入用户。邮箱冲突时返回 gorm.ErrDuplicatedKey。
func (r *GormRepository) CreateUser(ctx context.Context, user *entity.DbUser) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if user == nil {
		return errors.New("user is nil")
	}
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormRepository) UpdateUser(ctx context.Context, id string, updates entity.UserUpdates) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if strings.TrimSpace(id) == "" {
		return errEmptyUserKey
	}
	if updates.IsEmpty() {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbUser{}).Where("id = ?", id).Updates(updates.ToMap()).Error
}

// GetUserByEmail 按小写邮箱查找；写入时邮箱已统一为小写。
func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errEmptyUserKey
	}
	return r.findUser(ctx, "email = ?", email)
}

func (r *GormRepository) GetUserByID(ctx context.Context, id string) (*entity.DbUser, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errEmptyUserKey
	}
	return r.findUser(ctx, "id = ?", id)
}

func (r *GormRepository) findUser(ctx context.Context, cond string, arg any) (*entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	var user entity.DbUser
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers 按角色与关键字过滤，按注册时间倒序分页。
func (r *GormRepository) ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Meta, error) {
	if r == nil || r.db == nil {
		return nil, nil, errNotInitialised
	}
	if params == nil {
		params = &entity.UserQuery{}
	}

	query := r.db.WithContext(ctx).Model(&entity.DbUser{})
	if role := strings.TrimSpace(params.Role); role != "" {
		query = query.Where("role = ?", role)
	}
	if keyword := strings.ToLower(strings.TrimSpace(params.Keyword)); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("email LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)
	var users []entity.DbUser
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error; err != nil {
		return nil, nil, err
	}
	return users, r.calculatePagination(total, page, pageSize), nil
}

// DeleteUser 只删除账户行，积分流水与任务记录保留。
func (r *GormRepository) DeleteUser(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errNotInitialised
	}
	if strings.TrimSpace(id) == "" {
		return errEmptyUserKey
	}
	result := r.db.WithContext(ctx).Delete(&entity.DbUser{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepository) CountUsers(ctx context.Context) (int64, error) {
	return r.countUsers(ctx, time.Time{})
}

// CountUsersSince 统计 since 之后注册的用户数。
func (r *GormRepository) CountUsersSince(ctx context.Context, since time.Time) (int64, error) {
	return r.countUsers(ctx, since)
}

func (r *GormRepository) countUsers(ctx context.Context, since time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errNotInitialised
	}
	query := r.db.WithContext(ctx).Model(&entity.DbUser{})
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since.UTC())
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRepository) ListRecentUsers(ctx context.Context, limit int) ([]entity.DbUser, error) {
	if r == nil || r.db == nil {
		return nil, errNotInitialised
	}
	if limit <= 0 {
		limit = 10
	}
	var users []entity.DbUser
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
