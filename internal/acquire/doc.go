// Package acquire resolves one image per section by walking the ordered
// acquisition paths of the configured strategy.
//
// Strategies expand into path lists (video_only is [frame], hybrid is
// [frame, synthetic], ai_only is [synthetic]). Each path runs under the
// shared bounded retry policy; the first path that yields a decodable image
// wins and its name is recorded as the strategy used.
package acquire
