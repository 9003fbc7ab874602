// Package ffprobe reads the facts frame capture needs from a source video:
// whether it has a video stream, its dimensions, and the duration that
// bounds valid capture timestamps.
package ffprobe
