package main

import "github.com/KaramelBytes/imgdiff/cmd"

func main() {
	cmd.Execute()
}
