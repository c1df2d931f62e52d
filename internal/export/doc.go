// Package export renders summarized items into an Obsidian-style knowledge
// vault: one Markdown note per item plus daily and weekly digests, committed
// to a git repository. Notes the user has manually rated are never
// overwritten.
package export
