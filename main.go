// Public domain.

package main

import "github.com/tunbehaun273/Multi-instrument-tutorial/internal/jfprog"

func main() {
	jfprog.Main()
}
