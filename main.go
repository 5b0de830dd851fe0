package main

import "github.com/AzielCF/az-wabridge/cmd"

func main() {
	cmd.Execute()
}
