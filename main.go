// The main package for the site2pdf executable.
package main

import (
	"github.com/JakeFAU/site2pdf/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
