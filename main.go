// The main package for the actors-api executable.
package main

import (
	"github.com/ShalomGure/actors-api/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
