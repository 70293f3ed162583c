package main

import "github.com/mohammad-safakhou/sleuth/cmd"

func main() {
	cmd.Execute()
}
