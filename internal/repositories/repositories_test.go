package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/groupchat/internal/models"
	"github.com/desertthunder/groupchat/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *shared.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUser(id, email string) *models.User {
	user := models.NewUser(id, email, models.TokenPair{AccessToken: "access-" + id, RefreshToken: "refresh-" + id})
	user.SetDisplayName("User " + id)
	user.SetURL("https://open.spotify.com/user/" + id)
	return user
}

func newTestPlaylist(id, ownerID string) *models.Playlist {
	return models.NewPlaylist(id, "Playlist "+id, "https://open.spotify.com/playlist/"+id, "https://api.spotify.com/v1/playlists/"+id, ownerID)
}

func TestUserRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newTestUser("alice", "alice@example.com")

		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if user.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", user.Sequence())
		}

		retrieved, err := repo.Get("alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}

		if retrieved.Email() != "alice@example.com" {
			t.Errorf("expected email alice@example.com, got %s", retrieved.Email())
		}
		if retrieved.AccessToken() != "access-alice" || retrieved.RefreshToken() != "refresh-alice" {
			t.Errorf("unexpected tokens %+v", retrieved.Tokens())
		}
		if retrieved.ActivePlaylistID() != "" {
			t.Errorf("expected no active playlist, got %s", retrieved.ActivePlaylistID())
		}
		if retrieved.CreatedAt().IsZero() {
			t.Error("expected created_at to be read back")
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		if err := repo.Create(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		user, err := repo.GetByEmail("alice@example.com")
		if err != nil {
			t.Fatalf("failed to get user by email: %v", err)
		}
		if user.ID() != "alice" {
			t.Errorf("expected id alice, got %s", user.ID())
		}

		if _, err := repo.GetByEmail("nobody@example.com"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewUserRepository(db)
		user := newTestUser("alice", "alice@example.com")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := NewPlaylistRepository(db).Create(newTestPlaylist("pl1", "alice")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		user.SetTokens(models.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"})
		user.SetActivePlaylistID("pl1")
		if err := repo.Update(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		retrieved, err := repo.Get("alice")
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.AccessToken() != "new-access" || retrieved.RefreshToken() != "new-refresh" {
			t.Errorf("tokens not updated: %+v", retrieved.Tokens())
		}
		if retrieved.ActivePlaylistID() != "pl1" {
			t.Errorf("expected active playlist pl1, got %s", retrieved.ActivePlaylistID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		user := newTestUser("alice", "alice@example.com")
		if err := repo.Create(user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.Delete(user.ID()); err != nil {
			t.Fatalf("failed to delete user: %v", err)
		}

		if _, err := repo.Get(user.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found after delete, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewUserRepository(setupTestDB(t))
		for _, id := range []string{"u1", "u2", "u3"} {
			if err := repo.Create(newTestUser(id, id+"@example.com")); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list users: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 users, got %d", len(all))
		}
		if all[0].ID() != "u1" || all[2].ID() != "u3" {
			t.Errorf("expected users ordered by sequence, got %s..%s", all[0].ID(), all[2].ID())
		}

		filtered, err := repo.List(map[string]any{"email": "u2@example.com"})
		if err != nil {
			t.Fatalf("failed to list filtered users: %v", err)
		}
		if len(filtered) != 1 || filtered[0].ID() != "u2" {
			t.Errorf("expected only u2, got %d users", len(filtered))
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create & Get", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewUserRepository(db).Create(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		repo := NewPlaylistRepository(db)
		if err := repo.Create(newTestPlaylist("pl1", "alice")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		playlist, err := repo.Get("pl1")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if playlist.Endpoint() != "https://api.spotify.com/v1/playlists/pl1" {
			t.Errorf("unexpected endpoint %s", playlist.Endpoint())
		}
		if playlist.OwnerID() != "alice" {
			t.Errorf("expected owner alice, got %s", playlist.OwnerID())
		}
	})

	t.Run("Owner Must Exist", func(t *testing.T) {
		repo := NewPlaylistRepository(setupTestDB(t))
		if err := repo.Create(newTestPlaylist("pl1", "ghost")); err == nil {
			t.Fatal("expected foreign key violation for unknown owner")
		}
	})

	t.Run("List By Owner", func(t *testing.T) {
		db := setupTestDB(t)
		users := NewUserRepository(db)
		for _, id := range []string{"alice", "bob"} {
			if err := users.Create(newTestUser(id, id+"@example.com")); err != nil {
				t.Fatalf("failed to create user: %v", err)
			}
		}

		repo := NewPlaylistRepository(db)
		for _, p := range []*models.Playlist{
			newTestPlaylist("a1", "alice"),
			newTestPlaylist("b1", "bob"),
			newTestPlaylist("a2", "alice"),
		} {
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		owned, err := repo.List(map[string]any{"owner_id": "alice"})
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(owned) != 2 || owned[0].ID() != "a1" || owned[1].ID() != "a2" {
			t.Errorf("expected [a1 a2], got %d playlists", len(owned))
		}
	})

	t.Run("Update & Delete", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewUserRepository(db).Create(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		repo := NewPlaylistRepository(db)
		playlist := newTestPlaylist("pl1", "alice")
		if err := repo.Create(playlist); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		playlist.SetTitle("Renamed")
		if err := repo.Update(playlist); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		if err := repo.Delete("pl1"); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}
		if _, err := repo.Get("pl1"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestAccountRepository(t *testing.T) {
	t.Run("Create & Lookup", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		account := models.NewAccount("alice", "hash")

		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		if account.ID() == "" {
			t.Fatal("account ID should be set after creation")
		}

		byName, err := repo.GetByUsername("alice")
		if err != nil {
			t.Fatalf("failed to get account by username: %v", err)
		}
		if byName.ID() != account.ID() {
			t.Errorf("expected id %s, got %s", account.ID(), byName.ID())
		}
		if byName.Linked() {
			t.Error("new account should not be linked")
		}
	})

	t.Run("Duplicate Username", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		if err := repo.Create(models.NewAccount("alice", "hash")); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}
		if err := repo.Create(models.NewAccount("alice", "other")); err == nil {
			t.Fatal("expected unique constraint error for duplicate username")
		}
	})

	t.Run("Link", func(t *testing.T) {
		db := setupTestDB(t)
		if err := NewUserRepository(db).Create(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		repo := NewAccountRepository(db)
		account := models.NewAccount("alice", "hash")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		account.SetUserID("alice")
		if err := repo.Update(account); err != nil {
			t.Fatalf("failed to link account: %v", err)
		}

		linked, err := repo.List(map[string]any{"user_id": "alice"})
		if err != nil {
			t.Fatalf("failed to list accounts: %v", err)
		}
		if len(linked) != 1 || linked[0].UserID() != "alice" {
			t.Errorf("expected one account linked to alice, got %d", len(linked))
		}
	})
}

func TestMessageRepository(t *testing.T) {
	setup := func(t *testing.T) *MessageRepository {
		db := setupTestDB(t)
		if err := NewUserRepository(db).Create(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if err := NewPlaylistRepository(db).Create(newTestPlaylist("pl1", "alice")); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}
		return NewMessageRepository(db)
	}

	t.Run("Create & List", func(t *testing.T) {
		repo := setup(t)
		bodies := []string{"first", "second", "third"}
		for i, body := range bodies {
			if err := repo.Create(models.NewMessage("pl1", "bob", body, i)); err != nil {
				t.Fatalf("failed to create message: %v", err)
			}
		}

		all, err := repo.List(map[string]any{"playlist_id": "pl1"})
		if err != nil {
			t.Fatalf("failed to list messages: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(all))
		}
		for i, m := range all {
			if m.Body() != bodies[i] {
				t.Errorf("message %d: expected %q, got %q", i, bodies[i], m.Body())
			}
		}

		recent, err := repo.List(map[string]any{"playlist_id": "pl1", "limit": 2})
		if err != nil {
			t.Fatalf("failed to list recent messages: %v", err)
		}
		if len(recent) != 2 || recent[0].Body() != "second" || recent[1].Body() != "third" {
			t.Errorf("expected the two most recent messages oldest first, got %d", len(recent))
		}
	})

	t.Run("Get & Delete", func(t *testing.T) {
		repo := setup(t)
		message := models.NewMessage("pl1", "bob", "hello", 0)
		if err := repo.Create(message); err != nil {
			t.Fatalf("failed to create message: %v", err)
		}

		got, err := repo.Get(message.ID())
		if err != nil {
			t.Fatalf("failed to get message: %v", err)
		}
		if got.Sender() != "bob" {
			t.Errorf("expected sender bob, got %s", got.Sender())
		}

		if err := repo.Delete(message.ID()); err != nil {
			t.Fatalf("failed to delete message: %v", err)
		}
		if _, err := repo.Get(message.ID()); !errors.Is(err, shared.ErrMessageNotFound) {
			t.Errorf("expected ErrMessageNotFound, got %v", err)
		}
	})

	t.Run("Update Unsupported", func(t *testing.T) {
		repo := setup(t)
		if err := repo.Update(models.NewMessage("pl1", "bob", "hello", 0)); !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})
}

func TestStore(t *testing.T) {
	t.Run("SaveUser Upserts", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		user := newTestUser("alice", "alice@example.com")

		if err := store.SaveUser(user); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		user.SetTokens(models.TokenPair{AccessToken: "rotated", RefreshToken: "refresh-alice"})
		if err := store.SaveUser(user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		found, err := store.FindUserByEmail("alice@example.com")
		if err != nil {
			t.Fatalf("failed to find user: %v", err)
		}
		if found.AccessToken() != "rotated" {
			t.Errorf("expected rotated token, got %s", found.AccessToken())
		}

		users, _ := store.Users.List(map[string]any{})
		if len(users) != 1 {
			t.Errorf("expected a single stored user, got %d", len(users))
		}
	})

	t.Run("SavePlaylist & History", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		if err := store.SaveUser(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to save user: %v", err)
		}
		if err := store.SavePlaylist(newTestPlaylist("pl1", "alice")); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		playlists, err := store.ListPlaylists("alice")
		if err != nil || len(playlists) != 1 {
			t.Fatalf("expected one playlist, got %d (%v)", len(playlists), err)
		}

		if err := store.SaveMessage(models.NewMessage("pl1", "bob", "hi", 0)); err != nil {
			t.Fatalf("failed to save message: %v", err)
		}
		history, err := store.History("pl1", 0)
		if err != nil || len(history) != 1 {
			t.Fatalf("expected one message, got %d (%v)", len(history), err)
		}
	})

	t.Run("RemovePlaylist Allows Recreate", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		if err := store.SaveUser(newTestUser("alice", "alice@example.com")); err != nil {
			t.Fatalf("failed to save user: %v", err)
		}
		if err := store.SavePlaylist(newTestPlaylist("pl1", "alice")); err != nil {
			t.Fatalf("failed to save playlist: %v", err)
		}

		if err := store.RemovePlaylist("pl1"); err != nil {
			t.Fatalf("failed to remove playlist: %v", err)
		}
		if _, err := store.GetPlaylist("pl1"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if err := store.SavePlaylist(newTestPlaylist("pl1", "alice")); err != nil {
			t.Errorf("expected a removed id to be creatable again, got %v", err)
		}

		if err := store.RemovePlaylist("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("GetPlaylist Missing", func(t *testing.T) {
		store := NewStore(setupTestDB(t))
		if _, err := store.GetPlaylist("missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
