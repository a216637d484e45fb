package main

import "github.com/banktools/bankml/internal/cli"

func main() {
	cli.Execute()
}
