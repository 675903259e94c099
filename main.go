package main

import "github.com/melotrace/melotrace/cmd"

func main() {
	cmd.Execute()
}
