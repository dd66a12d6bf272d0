package models

// Media represents a single playable file tracked by the library
type Media struct {
	ID     int    `json:"id"`
	Path   string `json:"-"` // don't expose file path to presentation code
	Name   string `json:"name"`
	Format string `json:"format"`
	Author string `json:"author,omitempty"`
	Album  string `json:"album,omitempty"`
}

// Playlist represents a named, ordered collection of media
type Playlist struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	MediaCount int    `json:"mediaCount"`
}

// PlaylistEntry represents the relationship between playlists and media.
// Probability is declared by the schema with a default of 1 and currently
// has no read path; it is kept for file compatibility.
type PlaylistEntry struct {
	PlaylistID  int     `json:"playlistId"`
	MediaID     int     `json:"mediaId"`
	Position    int     `json:"position"`
	Probability float64 `json:"probability"`
}
