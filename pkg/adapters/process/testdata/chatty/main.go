package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Prints N numbered lines (default 5), one every 10ms, then exits.
func main() {
	n := 5
	if len(os.Args) > 1 {
		if v, err := strconv.Atoi(os.Args[1]); err == nil {
			n = v
		}
	}
	for i := 1; i <= n; i++ {
		fmt.Printf("line %d\n", i)
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Fprintln(os.Stderr, "done:"+os.Getenv("CHATTY_TAG"))
}
