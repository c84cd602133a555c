// Package chat finds Spotify track links in free-form chat messages.
package chat

import "regexp"

// TrackURLPrefix is the share-link prefix recognized in messages.
const TrackURLPrefix = "https://open.spotify.com/track/"

var trackURLPattern = regexp.MustCompile(regexp.QuoteMeta(TrackURLPrefix) + `([^\s\p{Z}?]+)`)

// ExtractTrackIDs returns the id of every Spotify track link in message, in order of appearance.
//
// The id is the run of characters after [TrackURLPrefix] up to the first whitespace (Unicode spaces such
// as U+00A0 included) or "?".
// Duplicates are kept. A message without links yields an empty, non-nil slice.
func ExtractTrackIDs(message string) []string {
	matches := trackURLPattern.FindAllStringSubmatch(message, -1)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}
	return ids
}
