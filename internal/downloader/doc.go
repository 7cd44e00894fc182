// Package downloader fetches exam files into the local archive.
//
// Every file is first checked against the archive: if its target path
// already exists the file is skipped without touching the network, which
// makes repeated runs idempotent. Missing files are fetched by a fixed size
// pool of workers. A failed fetch is retried with exponential backoff
// (base, 2·base, 4·base, ...) up to a fixed number of attempts; after that
// the failure is logged once and the rest of the batch continues.
package downloader
