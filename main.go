package main

import "github.com/slatesh/slate/cmd"

func main() {
	cmd.Execute()
}
