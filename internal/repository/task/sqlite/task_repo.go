package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"odotList/internal/logger"
	"odotList/internal/migrations"
	"odotList/internal/models/task"
	repo "odotList/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Storage struct {
	db *sql.DB
}

func New(ctx context.Context, path string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		logger.Error("Repository: Ошибка открытия файла базы", err)
		return nil, fmt.Errorf("открытие базы: %w", err)
	}

	// одна локальная база, один пишущий процесс
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("включение WAL: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	s := &Storage{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Repository: Успешное подключение к SQLite", zap.String("path", path))
	return s, nil
}

// modernc.org/sqlite регистрирует драйвер "sqlite" и понимает file: DSN
func dsn(path string) string {
	return "file:" + path
}

func (s *Storage) Close() {
	s.db.Close()
	logger.Info("Repository: Закрытие соединения SQLite")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// Migrate накатывает зашитые миграции через golang-migrate
func (s *Storage) Migrate() error {
	logger.Info("Попытка миграций")

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Error("Repository: Ошибка чтения миграций", err)
		return fmt.Errorf("чтение миграций: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		logger.Error("Repository: Ошибка драйвера миграций", err)
		return fmt.Errorf("драйвер миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		logger.Error("Repository: Ошибка инициализации миграций", err)
		return fmt.Errorf("инициализация миграций: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Миграции применены")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	taskToCreate.CreatedAt = time.Now()

	query := `INSERT INTO todos
				(title, date, time, priority, completed, notification_id, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		taskToCreate.Title,
		taskToCreate.Date,
		taskToCreate.Time,
		string(taskToCreate.Priority),
		boolToInt(taskToCreate.Completed),
		nullString(taskToCreate.NotificationID),
		taskToCreate.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("получение id: %w", err)
	}
	taskToCreate.ID = id

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	start := time.Now()

	query := `SELECT
				id,
				title,
				date,
				time,
				priority,
				completed,
				notification_id,
				created_at,
				updated_at
				FROM todos
				WHERE id = ?`

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}

	return t, nil
}

func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT
				id,
				title,
				date,
				time,
				priority,
				completed,
				notification_id,
				created_at,
				updated_at
				FROM todos
				ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}

	return tasks, nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	now := time.Now()

	query := `UPDATE todos
			SET title = ?,
				date = ?,
				time = ?,
				priority = ?,
				completed = ?,
				notification_id = ?,
				updated_at = ?
			WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Date,
		taskToUpdate.Time,
		string(taskToUpdate.Priority),
		boolToInt(taskToUpdate.Completed),
		nullString(taskToUpdate.NotificationID),
		now.UTC().Format(time.RFC3339),
		taskToUpdate.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("проверка обновления: %w", err)
	}
	if affected == 0 {
		return repo.ErrNotFound
	}
	taskToUpdate.UpdatedAt = &now

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// Delete идемпотентно: удаление отсутствующей задачи - не ошибка
func (s *Storage) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	query := `DELETE FROM todos
				WHERE id = ?`

	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	t := &task.Task{}
	var (
		priority       string
		completed      int
		notificationID sql.NullString
		createdAt      string
		updatedAt      sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Date,
		&t.Time,
		&priority,
		&completed,
		&notificationID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	t.Completed = completed == 1
	if notificationID.Valid {
		t.NotificationID = &notificationID.String
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = parsed
	}
	if updatedAt.Valid {
		if parsed, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			t.UpdatedAt = &parsed
		}
	}

	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
