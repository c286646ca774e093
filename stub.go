package main

import "gopherirq/kernel/kmain"

// multibootInfoPtr is populated by the rt0 code before main runs.
var multibootInfoPtr uintptr

// main only exists so that the linker keeps Kmain and everything it reaches
// in the kernel image. Passing a package variable, rather than a constant,
// keeps the call from being inlined away.
func main() {
	kmain.Kmain(multibootInfoPtr)
}
