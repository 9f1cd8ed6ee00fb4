package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"github.com/AnshRaj112/inkwell-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Postgres implements Store on database/sql with the lib/pq driver.
type Postgres struct {
	db *sql.DB
	q  dbtx
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

func (p *Postgres) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if p.db == nil {
		// already inside a transaction
		return fn(p)
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Postgres{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- journals ---

const journalColumns = `j.id, j.user_id, j.title, j.archived, j.created_at, j.updated_at`

func (p *Postgres) CreateJournal(ctx context.Context, userID uuid.UUID, title string) (*models.Journal, error) {
	j := &models.Journal{ID: uuid.New(), UserID: userID, Title: title}
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO journals (id, user_id, title, archived, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
		RETURNING created_at, updated_at
	`, j.ID, userID, title).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert journal: %w", err)
	}
	return j, nil
}

func (p *Postgres) GetJournal(ctx context.Context, id uuid.UUID) (*models.Journal, error) {
	var j models.Journal
	err := p.q.QueryRowContext(ctx, `
		SELECT `+journalColumns+` FROM journals j
		WHERE j.id = $1 AND j.deleted_at IS NULL
	`, id).Scan(&j.ID, &j.UserID, &j.Title, &j.Archived, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetJournal", "Journal not found")
	}
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	return &j, nil
}

const previewQuery = `
	SELECT ` + journalColumns + `, fp.id, fp.content, fp.created_at
	FROM journals j
	LEFT JOIN LATERAL (
		SELECT id, content, created_at FROM journal_pages
		WHERE journal_id = j.id AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	) fp ON TRUE
	WHERE j.user_id = $1 AND j.archived = $2 AND j.deleted_at IS NULL`

func (p *Postgres) ListJournals(ctx context.Context, userID uuid.UUID, archived bool) ([]models.JournalPreview, error) {
	rows, err := p.q.QueryContext(ctx, previewQuery+`
		ORDER BY j.created_at DESC, j.id DESC
	`, userID, archived)
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return scanPreviews(rows)
}

func (p *Postgres) SearchJournals(ctx context.Context, userID uuid.UUID, title string) ([]models.JournalPreview, error) {
	rows, err := p.q.QueryContext(ctx, previewQuery+`
		AND j.title ILIKE '%' || $3 || '%'
		ORDER BY j.created_at DESC, j.id DESC
	`, userID, false, escapeLike(title))
	if err != nil {
		return nil, fmt.Errorf("search journals: %w", err)
	}
	return scanPreviews(rows)
}

func scanPreviews(rows *sql.Rows) ([]models.JournalPreview, error) {
	defer rows.Close()

	out := []models.JournalPreview{}
	for rows.Next() {
		var (
			jp          models.JournalPreview
			pageID      uuid.NullUUID
			pageContent sql.NullString
			pageCreated sql.NullTime
		)
		if err := rows.Scan(&jp.ID, &jp.UserID, &jp.Title, &jp.Archived, &jp.CreatedAt, &jp.UpdatedAt,
			&pageID, &pageContent, &pageCreated); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		if pageID.Valid {
			jp.FirstPage = &models.Page{
				ID:        pageID.UUID,
				JournalID: jp.ID,
				Content:   pageContent.String,
				CreatedAt: pageCreated.Time,
			}
		}
		out = append(out, jp)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE metacharacters so the search term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (p *Postgres) ToggleArchive(ctx context.Context, id uuid.UUID) (bool, error) {
	var archived bool
	err := p.q.QueryRowContext(ctx, `
		UPDATE journals SET archived = NOT archived, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING archived
	`, id).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.NotFound("repository.ToggleArchive", "Journal not found")
	}
	if err != nil {
		return false, fmt.Errorf("toggle archive: %w", err)
	}
	return archived, nil
}

func (p *Postgres) DeleteJournal(ctx context.Context, id uuid.UUID) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE journals SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete journal: %w", err)
	}
	return requireAffected(res, "repository.DeleteJournal", "Journal not found")
}

// --- notifications ---

func (p *Postgres) CreateNotification(ctx context.Context, journalID uuid.UUID, typ models.ReminderType, at string) (*models.Notification, error) {
	n := &models.Notification{ID: uuid.New(), JournalID: journalID, Type: typ, Time: at}
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO journal_notifications (id, journal_id, type, time, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`, n.ID, journalID, string(typ), at).Scan(&n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (p *Postgres) GetNotification(ctx context.Context, journalID uuid.UUID) (*models.Notification, error) {
	var (
		n   models.Notification
		typ string
	)
	err := p.q.QueryRowContext(ctx, `
		SELECT id, journal_id, type, time, created_at FROM journal_notifications
		WHERE journal_id = $1
	`, journalID).Scan(&n.ID, &n.JournalID, &typ, &n.Time, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select notification: %w", err)
	}
	n.Type = models.ReminderType(typ)
	return &n, nil
}

// --- pages ---

func (p *Postgres) CreatePage(ctx context.Context, journalID uuid.UUID, content string) (*models.Page, error) {
	page := &models.Page{ID: uuid.New(), JournalID: journalID, Content: content}
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO journal_pages (id, journal_id, content, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`, page.ID, journalID, content).Scan(&page.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert page: %w", err)
	}
	return page, nil
}

func (p *Postgres) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	var page models.Page
	err := p.q.QueryRowContext(ctx, `
		SELECT p.id, p.journal_id, p.content, p.created_at
		FROM journal_pages p
		JOIN journals j ON j.id = p.journal_id
		WHERE p.id = $1 AND p.deleted_at IS NULL AND j.deleted_at IS NULL
	`, id).Scan(&page.ID, &page.JournalID, &page.Content, &page.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetPage", "Journal page not found")
	}
	if err != nil {
		return nil, fmt.Errorf("select page: %w", err)
	}
	return &page, nil
}

func (p *Postgres) ListPages(ctx context.Context, journalID uuid.UUID) ([]models.Page, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT id, journal_id, content, created_at FROM journal_pages
		WHERE journal_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`, journalID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages := []models.Page{}
	for rows.Next() {
		var page models.Page
		if err := rows.Scan(&page.ID, &page.JournalID, &page.Content, &page.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func (p *Postgres) DeletePage(ctx context.Context, id uuid.UUID) error {
	res, err := p.q.ExecContext(ctx, `
		UPDATE journal_pages SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return requireAffected(res, "repository.DeletePage", "Journal page not found")
}

// --- images ---

func (p *Postgres) CreateImage(ctx context.Context, pageID uuid.UUID, path string) (*models.Image, error) {
	img := &models.Image{ID: uuid.New(), PageID: pageID, Path: path}
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO images (id, journal_page_id, path, created_at)
		VALUES ($1, $2, $3, NOW())
	`, img.ID, pageID, path)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return img, nil
}

func (p *Postgres) ListImages(ctx context.Context, pageID uuid.UUID) ([]models.Image, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT id, journal_page_id, path FROM images
		WHERE journal_page_id = $1
		ORDER BY created_at ASC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.PageID, &img.Path); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// --- users & profiles ---

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	err := p.q.QueryRowContext(ctx, `
		INSERT INTO users (id, username, name, password_hash, created_at, is_active)
		VALUES ($1, $2, $3, $4, NOW(), TRUE)
		RETURNING created_at
	`, u.ID, u.Username, u.Name, u.PasswordHash).Scan(&u.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.IsActive = true
	return nil
}

const userColumns = `id, username, name, COALESCE(avatar, ''), password_hash, created_at, is_active`

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.scanUser(p.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1) AND is_active = TRUE
	`, username))
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return p.scanUser(p.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active = TRUE
	`, id))
}

func (p *Postgres) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Avatar, &u.PasswordHash, &u.CreatedAt, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetUser", "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (p *Postgres) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	prof := models.Profile{UserID: userID}
	var gender string
	var dob sql.NullTime
	err := p.q.QueryRowContext(ctx, `
		SELECT u.name, COALESCE(u.avatar, ''), COALESCE(pr.gender, ''), COALESCE(pr.country, ''), pr.date_of_birth
		FROM users u
		LEFT JOIN profiles pr ON pr.user_id = u.id
		WHERE u.id = $1 AND u.is_active = TRUE
	`, userID).Scan(&prof.Name, &prof.Avatar, &gender, &prof.Country, &dob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetProfile", "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	prof.Gender = models.Gender(gender)
	if dob.Valid {
		t := dob.Time
		prof.DateOfBirth = &t
	}
	return &prof, nil
}

func (p *Postgres) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) error {
	res, err := p.q.ExecContext(ctx, `UPDATE users SET name = $2 WHERE id = $1`, userID, name)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return requireAffected(res, "repository.UpdateUserName", "User not found")
}

func (p *Postgres) SetAvatar(ctx context.Context, userID uuid.UUID, avatar string) error {
	res, err := p.q.ExecContext(ctx, `UPDATE users SET avatar = $2 WHERE id = $1`, userID, avatar)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return requireAffected(res, "repository.SetAvatar", "User not found")
}

func (p *Postgres) UpsertProfile(ctx context.Context, prof *models.Profile) error {
	var dob interface{}
	if prof.DateOfBirth != nil {
		dob = prof.DateOfBirth.Format(time.DateOnly)
	}
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO profiles (user_id, gender, country, date_of_birth, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET gender = EXCLUDED.gender, country = EXCLUDED.country,
		    date_of_birth = EXCLUDED.date_of_birth, updated_at = NOW()
	`, prof.UserID, string(prof.Gender), prof.Country, dob)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, op, message string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(op, message)
	}
	return nil
}
