package main

import "github.com/jengzang/gazereader-go/internal/cli"

func main() {
	cli.Execute()
}
