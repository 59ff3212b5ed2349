// Package callfile loads HCL scripts made of `call` blocks. Each block names
// a function and gives its arguments as HCL expressions that may reference
// environment variables and the results of other calls:
//
//	call "home" {
//	  function = "get_runtime_path"
//	}
//
//	call "reports" {
//	  function = "join_path"
//	  args     = [result.home, "reports", env.USER]
//	}
//
// References to `result.<label>` make the call depend on that label. A
// `depends_on` list adds ordering without a data reference. The loader
// rejects unknown labels, duplicate labels and cycles, and groups the calls
// into levels for the executor.
package callfile
