// Package transcript loads video transcripts for the plan request.
//
// Supported inputs are SubRip (.srt), WebVTT (.vtt), YouTube json3 caption
// dumps, and plain text where lines may carry a leading [HH:MM:SS] marker.
// Every format parses into Segments, which Render formats as the
// "[HH:MM:SS] text" lines the writer prompt expects.
package transcript
