package main

import "github.com/forPelevin/clipmark/internal/cli"

func main() { cli.Main() }
