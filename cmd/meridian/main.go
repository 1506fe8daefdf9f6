// Meridian indexes a workspace of projects and answers which project owns
// a file, with every registry operation recorded as a privacy-tagged
// instrumentation record.
//
// Usage:
//
//	# Index the workspace, watch it for new projects and serve /metrics
//	meridian run --workspace ~/src
//
//	# List projects with their indexed element counts
//	meridian projects --index
//
//	# Which project owns a file?
//	meridian resolve ~/src/app/main.go
//
//	# Search the shared index
//	meridian search "*_test.go" --kind file
//
//	# Query stored instrumentation records
//	meridian records query --operation Registry.resourceFor --limit 20
package main

func main() {
	Execute()
}
