package main

import "github.com/curaious/oneflow/cmd"

func main() {
	cmd.Execute()
}
