// bppkg is the package manager for the BetterPython ecosystem.
package main

import "github.com/th3f0rk/bppkg/cmd/bppkg/cmd"

func main() {
	cmd.Execute()
}
