// Package media plays fetched attachments on the system audio device.
//
// Blobs are addressed by object URLs handed out by a URLRegistry. The
// Element decodes MP3 blobs and reports playback through an event
// channel. There is no pitch/tempo processing on this host; NopGraph
// reports it as unavailable and playback continues unprocessed.
package media
