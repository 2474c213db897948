// The main package for the lead-finder executable.
package main

import (
	"github.com/CengizhanKARAGOZ/lead-finder/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
