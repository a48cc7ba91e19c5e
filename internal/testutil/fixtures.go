package testutil

import (
	"encoding/json"
	"fmt"
)

// Catalog test constants
const (
	TestSongID     = "song-1"
	TestAlbumID    = "album-1"
	TestPlaylistID = "playlist-1"
	TestArtistID   = "artist-1"
	TestAudioURL   = "https://cdn.example.com/song-1_320.mp4"
	TestImageURL   = "https://img.example.com/500x500.jpg"
)

// Record is a loosely-typed catalog record
type Record map[string]any

// Envelope wraps data in a successful catalog response body
func Envelope(data any) string {
	return mustJSON(map[string]any{"success": true, "data": data})
}

// FailedEnvelope is a catalog body reporting failure
func FailedEnvelope(message string) string {
	return mustJSON(map[string]any{"success": false, "message": message})
}

// Images builds the usual three-tier image list
func Images(prefix string) []Record {
	return []Record{
		{"quality": "50x50", "url": prefix + "/50x50.jpg"},
		{"quality": "150x150", "url": prefix + "/150x150.jpg"},
		{"quality": "500x500", "url": prefix + "/500x500.jpg"},
	}
}

// DownloadURLs builds a downloadUrl list from quality/url pairs
func DownloadURLs(pairs ...string) []Record {
	variants := make([]Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		variants = append(variants, Record{"quality": pairs[i], "url": pairs[i+1]})
	}
	return variants
}

// SongRecord builds a playable song record
func SongRecord(id, name, artist string) Record {
	return Record{
		"id":             id,
		"type":           "song",
		"name":           name,
		"primaryArtists": artist,
		"image":          Images("https://img.example.com/" + id),
		"downloadUrl": DownloadURLs(
			"96kbps", "https://cdn.example.com/"+id+"_96.mp4",
			"160kbps", "https://cdn.example.com/"+id+"_160.mp4",
			"320kbps", "https://cdn.example.com/"+id+"_320.mp4",
		),
	}
}

// AlbumRecord builds an album record
func AlbumRecord(id, name string) Record {
	return Record{
		"id":          id,
		"type":        "album",
		"name":        name,
		"description": "Album by Test Artist",
		"image":       Images("https://img.example.com/" + id),
	}
}

// PlaylistRecord builds a playlist record
func PlaylistRecord(id, title string) Record {
	return Record{
		"id":       id,
		"type":     "playlist",
		"title":    title,
		"subtitle": "Editorial",
		"image":    "https://img.example.com/" + id + ".jpg",
	}
}

// ArtistRecord builds an artist record
func ArtistRecord(id, name string) Record {
	return Record{
		"id":    id,
		"type":  "artist",
		"name":  name,
		"image": Images("https://img.example.com/" + id),
	}
}

// Albums builds n album records album-0..album-(n-1)
func Albums(n int) []Record {
	return records(n, func(i int) Record { return AlbumRecord(fmt.Sprintf("album-%d", i), fmt.Sprintf("Album %d", i)) })
}

// Playlists builds n playlist records playlist-0..playlist-(n-1)
func Playlists(n int) []Record {
	return records(n, func(i int) Record {
		return PlaylistRecord(fmt.Sprintf("playlist-%d", i), fmt.Sprintf("Playlist %d", i))
	})
}

// Songs builds n song records song-0..song-(n-1)
func Songs(n int) []Record {
	return records(n, func(i int) Record {
		return SongRecord(fmt.Sprintf("song-%d", i), fmt.Sprintf("Song %d", i), "Test Artist")
	})
}

func records(n int, build func(i int) Record) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = build(i)
	}
	return out
}

// Results wraps records as a category search payload
func Results(items []Record) Record {
	return Record{"results": items}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
