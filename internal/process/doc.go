// Package process contains the per-kind stage processors that move items
// from pending to completed: audio download plus transcription for podcast
// episodes, and body extraction for newsletters. Each item is handled in
// isolation; one failure marks that item failed and the batch continues.
package process
