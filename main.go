package main

import "github.com/Johannes-Berggren/BranchPruner/cmd"

func main() {
	cmd.Execute()
}
