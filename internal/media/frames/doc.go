// Package frames captures still frames from a local video with ffmpeg.
//
// The video duration is probed once per Capturer (via ffprobe) and bounds
// the valid timestamp range. Errors are tagged so the retry policy can tell
// them apart: out-of-range timestamps, missing videos, ffmpeg failures and
// empty output are structural; a capture that exceeds its timeout is
// transient.
package frames
