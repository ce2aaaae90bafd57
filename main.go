package main

import "github.com/klytics/namekit/cmd"

func main() {
	cmd.Execute()
}
