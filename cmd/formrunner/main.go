package main

import "formrunner/internal/cli"

func main() {
	cli.Execute()
}
