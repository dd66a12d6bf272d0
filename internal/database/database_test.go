package database

import (
	"errors"
	"path/filepath"
	"testing"

	"midnightmedia/pkg/models"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestMedia(t *testing.T, db *Database, name string) int {
	t.Helper()
	id, err := db.InsertMedia(models.Media{
		Path:   "/media/" + name + ".mp3",
		Name:   name,
		Format: "mp3",
		Author: "Test Artist",
		Album:  "Test Album",
	})
	if err != nil {
		t.Fatalf("Failed to insert media %q: %v", name, err)
	}
	return id
}

func TestMedia(t *testing.T) {
	db := newTestDB(t)

	t.Run("InsertAndFind", func(t *testing.T) {
		id := insertTestMedia(t, db, "First Song")

		media, err := db.FindMediaByID(id)
		if err != nil {
			t.Fatalf("Failed to find media by ID: %v", err)
		}
		if media.Name != "First Song" {
			t.Errorf("Expected name %q, got %q", "First Song", media.Name)
		}
		if media.Format != "mp3" {
			t.Errorf("Expected format mp3, got %q", media.Format)
		}
		if media.Author != "Test Artist" {
			t.Errorf("Expected author %q, got %q", "Test Artist", media.Author)
		}
	})

	t.Run("GetAllMedia", func(t *testing.T) {
		insertTestMedia(t, db, "Second Song")
		insertTestMedia(t, db, "Third Song")

		media, err := db.GetAllMedia()
		if err != nil {
			t.Fatalf("Failed to get all media: %v", err)
		}
		if len(media) != 3 {
			t.Fatalf("Expected 3 media rows, got %d", len(media))
		}

		names := make(map[string]bool)
		for _, m := range media {
			names[m.Name] = true
		}
		for _, want := range []string{"First Song", "Second Song", "Third Song"} {
			if !names[want] {
				t.Errorf("Expected %q in results", want)
			}
		}
	})

	t.Run("FindMissingMedia", func(t *testing.T) {
		_, err := db.FindMediaByID(99999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("MediaExists", func(t *testing.T) {
		exists, err := db.MediaExists("/media/First Song.mp3")
		if err != nil {
			t.Fatalf("Failed to check media exists: %v", err)
		}
		if !exists {
			t.Error("Expected media to exist")
		}

		exists, err = db.MediaExists("/media/nope.mp3")
		if err != nil {
			t.Fatalf("Failed to check media exists: %v", err)
		}
		if exists {
			t.Error("Expected media to be absent")
		}
	})

	t.Run("RemoveMediaByPath", func(t *testing.T) {
		id := insertTestMedia(t, db, "Doomed Song")

		if err := db.RemoveMediaByPath("/media/Doomed Song.mp3"); err != nil {
			t.Fatalf("Failed to remove media: %v", err)
		}

		_, err := db.FindMediaByID(id)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after removal, got %v", err)
		}
	})
}

func TestPlaylists(t *testing.T) {
	db := newTestDB(t)

	mediaA := insertTestMedia(t, db, "A")
	mediaB := insertTestMedia(t, db, "B")
	mediaC := insertTestMedia(t, db, "C")

	t.Run("CreateAndFind", func(t *testing.T) {
		id, err := db.CreatePlaylist("Favorites")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}

		playlist, err := db.FindPlaylistByID(id)
		if err != nil {
			t.Fatalf("Failed to find playlist: %v", err)
		}
		if playlist.Name != "Favorites" {
			t.Errorf("Expected name Favorites, got %q", playlist.Name)
		}
	})

	t.Run("FindMissingPlaylist", func(t *testing.T) {
		_, err := db.FindPlaylistByID(99999)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AppendOrderAndCount", func(t *testing.T) {
		id, err := db.CreatePlaylist("Ordered")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}

		for _, mediaID := range []int{mediaA, mediaB, mediaC} {
			if err := db.AppendToPlaylist(id, mediaID); err != nil {
				t.Fatalf("Failed to append media %d: %v", mediaID, err)
			}
		}

		count, err := db.GetMediaCount(id)
		if err != nil {
			t.Fatalf("Failed to count playlist media: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected count 3, got %d", count)
		}

		media, err := db.GetMediaInPlaylist(id)
		if err != nil {
			t.Fatalf("Failed to get playlist media: %v", err)
		}
		if len(media) != 3 {
			t.Fatalf("Expected 3 media rows, got %d", len(media))
		}
		for i, want := range []string{"A", "B", "C"} {
			if media[i].Name != want {
				t.Errorf("Position %d: expected %q, got %q", i, want, media[i].Name)
			}
		}
	})

	t.Run("DuplicateAppendRejected", func(t *testing.T) {
		id, err := db.CreatePlaylist("NoDupes")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}

		if err := db.AppendToPlaylist(id, mediaA); err != nil {
			t.Fatalf("First append failed: %v", err)
		}
		if err := db.AppendToPlaylist(id, mediaA); err == nil {
			t.Error("Expected duplicate append to fail")
		}

		count, err := db.GetMediaCount(id)
		if err != nil {
			t.Fatalf("Failed to count playlist media: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected count 1 after rejected duplicate, got %d", count)
		}
	})

	t.Run("ExplicitPosition", func(t *testing.T) {
		id, err := db.CreatePlaylist("Explicit")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}

		if err := db.AddToPlaylist(id, mediaB, 5); err != nil {
			t.Fatalf("Failed to add at explicit position: %v", err)
		}
		if err := db.AddToPlaylist(id, mediaA, 2); err != nil {
			t.Fatalf("Failed to add at explicit position: %v", err)
		}

		media, err := db.GetMediaInPlaylist(id)
		if err != nil {
			t.Fatalf("Failed to get playlist media: %v", err)
		}
		if len(media) != 2 || media[0].Name != "A" || media[1].Name != "B" {
			t.Errorf("Expected [A B] by position order, got %v", media)
		}
	})

	t.Run("RemoveFromPlaylist", func(t *testing.T) {
		id, err := db.CreatePlaylist("Shrinking")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		if err := db.AppendToPlaylist(id, mediaA); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := db.AppendToPlaylist(id, mediaB); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		if err := db.RemoveFromPlaylist(id, mediaA); err != nil {
			t.Fatalf("Failed to remove from playlist: %v", err)
		}

		media, err := db.GetMediaInPlaylist(id)
		if err != nil {
			t.Fatalf("Failed to get playlist media: %v", err)
		}
		if len(media) != 1 || media[0].Name != "B" {
			t.Errorf("Expected [B] after removal, got %v", media)
		}
	})

	t.Run("DeletePlaylistCascades", func(t *testing.T) {
		id, err := db.CreatePlaylist("Doomed")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		if err := db.AppendToPlaylist(id, mediaC); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		if err := db.DeletePlaylist(id); err != nil {
			t.Fatalf("Failed to delete playlist: %v", err)
		}

		count, err := db.GetMediaCount(id)
		if err != nil {
			t.Fatalf("Failed to count playlist media: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected cascade to remove entries, got count %d", count)
		}

		// The media itself survives playlist deletion
		if _, err := db.FindMediaByID(mediaC); err != nil {
			t.Errorf("Expected media to survive playlist deletion: %v", err)
		}
	})

	t.Run("MediaDeleteCascadesEntries", func(t *testing.T) {
		id, err := db.CreatePlaylist("Referencing")
		if err != nil {
			t.Fatalf("Failed to create playlist: %v", err)
		}
		doomed := insertTestMedia(t, db, "Ephemeral")
		if err := db.AppendToPlaylist(id, doomed); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		if err := db.RemoveMediaByPath("/media/Ephemeral.mp3"); err != nil {
			t.Fatalf("Failed to remove media: %v", err)
		}

		count, err := db.GetMediaCount(id)
		if err != nil {
			t.Fatalf("Failed to count playlist media: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected entry to cascade with media, got count %d", count)
		}
	})

	t.Run("GetAllPlaylistsCounts", func(t *testing.T) {
		playlists, err := db.GetAllPlaylists()
		if err != nil {
			t.Fatalf("Failed to get playlists: %v", err)
		}
		if len(playlists) == 0 {
			t.Fatal("Expected at least one playlist")
		}

		for _, p := range playlists {
			if p.Name == "Ordered" && p.MediaCount != 3 {
				t.Errorf("Expected Ordered to have 3 media, got %d", p.MediaCount)
			}
		}
	})
}

func TestIdempotentInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	id := insertTestMedia(t, db, "Survivor")
	db.Close()

	// Reopening runs table creation again; existing data must survive.
	db, err = New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	media, err := db.FindMediaByID(id)
	if err != nil {
		t.Fatalf("Failed to find media after reopen: %v", err)
	}
	if media.Name != "Survivor" {
		t.Errorf("Expected name Survivor, got %q", media.Name)
	}
}
