// Package ingest discovers new pipeline items: podcast episodes from the
// subscribed feeds in an OPML file, and newsletters from a drop directory
// fed by the mail fetcher. Discovery is idempotent; re-running it refreshes
// descriptive fields without disturbing items already in flight.
package ingest
