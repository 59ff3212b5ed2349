// Package manifest parses HCL declarations of function signatures and
// registers Go implementations against them.
//
// A manifest is the public contract of a module: the names it exports, the
// parameters each function accepts with their types and defaults, and a short
// description for tooling such as `dmutils describe`. Go code supplies only
// the implementations. Register refuses to proceed unless the two sides match
// exactly, so a function can never be callable without a declared shape.
//
//	function "level_x_path" {
//	  description = "Paths found exactly `level` directories below `path`."
//	  param "path" { type = string }
//	  param "level" {
//	    type    = number
//	    default = 3
//	  }
//	  returns = list(string)
//	}
package manifest
