// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the make-sps command line interface.
//
// The root command wires configuration, logging and the report service; the
// build subcommand runs the whole pipeline and optionally publishes the
// rendered report and records the run in the ledger.
package cmd
