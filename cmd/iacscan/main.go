package main

import "os"

// Exit codes: 0 success, 1 issues found, 2 internal or setup error.
func main() {
	os.Exit(Execute())
}
