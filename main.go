package main

import "coursekit/cmd"

func main() {
	cmd.Execute()
}
