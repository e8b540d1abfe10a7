package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("about to fail")
	fmt.Fprintln(os.Stderr, "Something went terribly wrong")
	os.Exit(123)
}
