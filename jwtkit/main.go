package main

import "github.com/mydebugger/jwtkit/jwtkit/cmd"

func main() {
	cmd.Execute()
}
