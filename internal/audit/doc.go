// Package audit is the programmatic entry point shared by the command line
// and the web form.
//
// Service.Run takes a URL and returns the completed run record. It never
// fails: stage failures are recorded in the record, and persistence
// problems (the JSON snapshot and the optional history database) are
// logged and otherwise ignored so the report still reaches the caller.
//
// Build wires a Service from configuration: provider selection for the
// language model, scraper and search capabilities, the retry policy, the
// three agents and the run history.
package audit
