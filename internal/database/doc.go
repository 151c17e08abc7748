// Package database provides SQLite-based storage for seoaudit run history.
//
// Every completed run record is stored in the runs table together with a
// few summary columns (URL, primary keyword, degraded flag, error count)
// so the history can be listed without decoding each record. The full
// record is kept as JSON and returned unchanged by GetRun and LatestRun.
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, with WAL journaling and a single writer connection.
package database
