// Package prepare wires configuration, extraction, preflight checks and
// conf.py rendering into a single preparation run.
//
// A run proceeds in fixed stages:
//
//	resolve   release and copyright from the version header and git
//	extract   gated doxygen passes
//	preflight breathe project directories contain index.xml
//	render    write conf.py when its content changed
//	record    history row, metrics and a notification
//
// Failures in the record stage are logged and never fail the run.
package prepare
