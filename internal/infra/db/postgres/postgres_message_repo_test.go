//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"carechat/internal/domain/model"
	"carechat/internal/infra/security"
)

func newTestMessage(userID string, role model.Role, mode model.Mode, content string) *model.ChatMessage {
	return model.NewChatMessage(ulid.Make().String(), userID, role, mode, content)
}

func TestMessageRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()

	t.Run("round trip with encryption at rest", func(t *testing.T) {
		cleanup(t)
		encSvc, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
		if err != nil {
			t.Fatalf("encryption service: %v", err)
		}
		repo := NewMessageRepo(testPool, encSvc)

		msgs := []*model.ChatMessage{
			newTestMessage("u1", model.RoleUser, model.ModeMedical, "I have a headache"),
			newTestMessage("u1", model.RoleAssistant, model.ModeMedical, "How long has it lasted?"),
		}
		for i, m := range msgs {
			m.CreatedAt = m.CreatedAt.Add(time.Duration(i) * time.Millisecond)
			if err := repo.Create(ctx, m); err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
		}

		// Raw column must not contain the plaintext.
		var raw string
		if err := testPool.QueryRow(ctx, "SELECT content FROM chat_messages WHERE id=$1", msgs[0].ID).Scan(&raw); err != nil {
			t.Fatalf("raw read: %v", err)
		}
		if raw == msgs[0].Content {
			t.Fatal("content stored as plaintext despite encryption service")
		}

		got, err := repo.List(ctx, "u1", model.ModeMedical, 50)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d messages, want 2", len(got))
		}
		if got[0].Content != msgs[0].Content || got[1].Content != msgs[1].Content {
			t.Errorf("decrypted contents do not match originals: %q, %q", got[0].Content, got[1].Content)
		}
		if got[0].Role != model.RoleUser || got[1].Role != model.RoleAssistant {
			t.Errorf("roles out of order: %s, %s", got[0].Role, got[1].Role)
		}
	})

	t.Run("list caps at newest rows but returns ascending", func(t *testing.T) {
		cleanup(t)
		repo := NewMessageRepo(testPool, nil)

		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			m := newTestMessage("u2", model.RoleUser, model.ModeRecipe, string(rune('a'+i)))
			m.CreatedAt = base.Add(time.Duration(i) * time.Second)
			if err := repo.Create(ctx, m); err != nil {
				t.Fatalf("create %d: %v", i, err)
			}
		}

		got, err := repo.List(ctx, "u2", model.ModeRecipe, 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d messages, want 3", len(got))
		}
		// Tail of the conversation: c, d, e ascending.
		want := []string{"c", "d", "e"}
		for i := range want {
			if got[i].Content != want[i] {
				t.Errorf("message %d = %q, want %q", i, got[i].Content, want[i])
			}
		}
	})

	t.Run("modes are isolated", func(t *testing.T) {
		cleanup(t)
		repo := NewMessageRepo(testPool, nil)

		if err := repo.Create(ctx, newTestMessage("u3", model.RoleUser, model.ModeDental, "tooth")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.Create(ctx, newTestMessage("u3", model.RoleUser, model.ModeTherapy, "mind")); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := repo.List(ctx, "u3", model.ModeDental, 50)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 1 || got[0].Content != "tooth" {
			t.Errorf("dental history leaked across modes: %+v", got)
		}
	})

	t.Run("purge removes one mode only", func(t *testing.T) {
		cleanup(t)
		repo := NewMessageRepo(testPool, nil)

		_ = repo.Create(ctx, newTestMessage("u4", model.RoleUser, model.ModeMedical, "a"))
		_ = repo.Create(ctx, newTestMessage("u4", model.RoleUser, model.ModeRecipe, "b"))

		n, err := repo.Purge(ctx, "u4", model.ModeMedical)
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if n != 1 {
			t.Errorf("purged %d rows, want 1", n)
		}
		left, err := repo.List(ctx, "u4", model.ModeRecipe, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(left) != 1 {
			t.Errorf("recipe history should survive a medical purge")
		}
	})
}
