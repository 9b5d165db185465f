package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"carechat/internal/domain"
	"carechat/internal/domain/model"
	"carechat/internal/domain/ports/repository"
	"carechat/internal/infra/security"
)

// Schema:
//
//	CREATE TABLE chat_messages (
//	  id         TEXT PRIMARY KEY,
//	  user_id    TEXT NOT NULL,
//	  role       TEXT NOT NULL,
//	  mode       TEXT NOT NULL,
//	  content    TEXT NOT NULL,
//	  encrypted  BOOLEAN NOT NULL DEFAULT FALSE,
//	  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX idx_chat_messages_user_mode ON chat_messages (user_id, mode, created_at);
var _ repository.MessageStore = (*MessageRepo)(nil)

// MessageRepo persists conversation turns, optionally encrypting content
// at rest when an encryption service is configured.
type MessageRepo struct {
	pool          *pgxpool.Pool
	encryptionSvc *security.EncryptionService
}

// NewMessageRepo constructs the repo. encryptionSvc may be nil, in which
// case content is stored as plaintext.
func NewMessageRepo(pool *pgxpool.Pool, encryptionSvc *security.EncryptionService) *MessageRepo {
	return &MessageRepo{pool: pool, encryptionSvc: encryptionSvc}
}

func (r *MessageRepo) Create(ctx context.Context, m *model.ChatMessage) error {
	payload := m.Content
	encFlag := false
	if r.encryptionSvc != nil {
		enc, err := r.encryptionSvc.Encrypt(m.Content)
		if err != nil {
			return fmt.Errorf("encrypt message: %w", err)
		}
		payload = enc
		encFlag = true
	}

	const q = `
INSERT INTO chat_messages (id, user_id, role, mode, content, encrypted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,NOW()));`
	_, err := r.pool.Exec(ctx, q, m.ID, m.UserID, string(m.Role), string(m.Mode), payload, encFlag, m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: duplicate message id %s", domain.ErrInvalidInput, m.ID)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) List(ctx context.Context, userID string, mode model.Mode, limit int) ([]*model.ChatMessage, error) {
	// Newest N rows, then flipped, so the cap keeps the tail of the
	// conversation rather than its beginning.
	const q = `
SELECT id, role, content, encrypted, created_at
  FROM chat_messages
 WHERE user_id=$1 AND mode=$2
 ORDER BY created_at DESC, id DESC
 LIMIT $3;`
	rows, err := r.pool.Query(ctx, q, userID, string(mode), limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*model.ChatMessage
	for rows.Next() {
		m := &model.ChatMessage{UserID: userID, Mode: mode}
		var role string
		var encrypted bool
		if err := rows.Scan(&m.ID, &role, &m.Content, &encrypted, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		if encrypted {
			if r.encryptionSvc == nil {
				return nil, fmt.Errorf("message %s is encrypted but no key is configured", m.ID)
			}
			plain, err := r.encryptionSvc.Decrypt(m.Content)
			if err != nil {
				return nil, fmt.Errorf("decrypt message %s: %w", m.ID, err)
			}
			m.Content = plain
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	// flip to ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Purge removes a user's history in one mode. Used by retention tooling;
// not exposed over HTTP.
func (r *MessageRepo) Purge(ctx context.Context, userID string, mode model.Mode) (int64, error) {
	const q = `DELETE FROM chat_messages WHERE user_id=$1 AND mode=$2;`
	tag, err := r.pool.Exec(ctx, q, userID, string(mode))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
