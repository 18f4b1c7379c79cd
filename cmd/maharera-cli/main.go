package main

import "maharera-api/cmd/maharera-cli/cmd"

func main() {
	cmd.Execute()
}
