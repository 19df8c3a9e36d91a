// SPDX-License-Identifier: MPL-2.0

// Package cueutil checks make-sps documents against embedded CUE schemas.
//
// A Schema is compiled once per process from an embedded definition and is
// shared by every load. The project manifest is decoded completely into Go
// structs with Decode. The user config is partial, so DecodeMap leaves
// optional fields unset and returns a map for viper to merge.
//
// Schema failures are returned as *ValidationError, listing each violated
// field as a dotted path such as project.csu[1].dir.
package cueutil
