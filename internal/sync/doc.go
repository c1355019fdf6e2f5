// Package sync replicates the server catalog into the local SQLite store.
//
// Data is split into checksummed domains, each a group of tables that are
// dropped and rebuilt together from one endpoint payload. A full refresh
// walks the domains in waves: the catalog core first, customer-coupled data
// second, documents third, customer master data fourth, and departments last
// because their product links need wave 1 in place. Within a wave fetches run
// concurrently; all writes funnel through the store's single writer.
//
// The server is the only source of truth for catalog data. The client never
// merges: a changed checksum means the whole domain is replaced, a matching
// checksum means the domain is skipped for that run.
package sync
