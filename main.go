// The main package for the redditwatch executable.
package main

import (
	"github.com/growthsignals/redditwatch/cmd"
)

func main() {
	cmd.Execute()
}
