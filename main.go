package main

import "github.com/sambett/github-api-visualize/cmd"

func main() {
	cmd.Execute()
}
