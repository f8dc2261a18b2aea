package main

import "github.com/deploymenttheory/go-fastboot/cmd"

func main() {
	cmd.Execute()
}
