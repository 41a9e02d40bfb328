package main

import "github.com/mabhi256/hotscope/cmd"

func main() {
	cmd.Execute()
}
