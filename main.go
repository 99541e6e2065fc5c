// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/benchkeeper/cmd/benchkeeper"

var execute = benchkeeper.Execute

func main() {
	execute()
}
