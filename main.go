package main

import "video-dubber/internal/cli"

func main() {
	cli.Main()
}
