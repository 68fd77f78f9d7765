package main

import "github.com/fakeyudi/studyai/cmd"

func main() {
	cmd.Execute()
}
